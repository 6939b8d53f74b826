// Package server serves the dashboard pages and the JSON API.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/TobiSchelling/repwatch/internal/actions"
	"github.com/TobiSchelling/repwatch/internal/database"
	"github.com/TobiSchelling/repwatch/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Options wires the server to the rest of the application. DB and Metrics
// may be nil.
type Options struct {
	Actions *actions.Service
	DB      *database.DB
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// Server is the HTTP server for the dashboard and API.
type Server struct {
	svc     *actions.Service
	db      *database.DB
	metrics *metrics.Collector
	logger  *zap.Logger
	pages   map[string]*template.Template
	router  chi.Router
	now     func() time.Time
}

var pageNames = []string{
	"index.html", "encyclopedia.html", "mentions.html", "cases.html",
	"analytics.html", "links.html", "scrape.html", "settings.html",
}

// New creates a new Server.
func New(opts Options) (*Server, error) {
	if opts.Actions == nil {
		return nil, errors.New("server: actions service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2 Jan 2006")
		},
		"dateptr": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2 Jan 2006")
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so its "title" and "content"
	// definitions do not collide.
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		svc:     opts.Actions,
		db:      opts.DB,
		metrics: opts.Metrics,
		logger:  logger,
		pages:   pages,
		router:  chi.NewRouter(),
		now:     time.Now,
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler())
	}

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/health", s.handleHealth)

	r.Get("/", s.handleIndex)
	r.Get("/encyclopedia", s.handleEncyclopedia)
	r.Post("/encyclopedia/categories", s.handleAddCategoryForm)
	r.Post("/encyclopedia/categories/{id}/links", s.handleAddLinkForm)
	r.Get("/mentions", s.handleMentions)
	r.Post("/mentions/{categoryID}/{linkID}/analyze", s.handleAnalyzeForm)
	r.Post("/mentions/{categoryID}/{linkID}/summarize", s.handleSummarizeForm)
	r.Get("/cases", s.handleCases)
	r.Get("/analytics", s.handleAnalytics)
	r.Get("/links", s.handleLinks)
	r.Get("/scrape", s.handleScrapePage)
	r.Post("/scrape", s.handleScrapeForm)
	r.Get("/settings", s.handleSettingsPage)
	r.Post("/settings", s.handleSettingsForm)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.apiListCategories)
		r.Post("/categories", s.apiAddCategory)
		r.Patch("/categories/{id}", s.apiUpdateCategory)
		r.Post("/categories/{id}/links", s.apiAddLink)
		r.Patch("/categories/{id}/links/{linkID}", s.apiUpdateLink)

		r.Get("/mentions", s.apiListMentions)
		r.Put("/mentions", s.apiUpdateMention)
		r.Post("/mentions/{categoryID}/{linkID}/analyze", s.apiAnalyzeMention)
		r.Post("/mentions/{categoryID}/{linkID}/summarize", s.apiSummarizeMention)
		r.Post("/mentions/{categoryID}/{linkID}/evidence", s.apiSaveEvidence)

		r.Get("/cases", s.apiListCases)
		r.Put("/cases", s.apiUpdateCase)
		r.Post("/cases/{linkID}/dmca", s.apiGenerateDMCA)

		r.Get("/analytics", s.apiAnalytics)
		r.Get("/links/unique", s.apiUniqueLinks)
		r.Post("/scrape", s.apiScrape)
		r.Post("/generate", s.apiGenerate)

		r.Get("/settings", s.apiGetSettings)
		r.Put("/settings", s.apiSaveSettings)
		r.Get("/runs", s.apiRuns)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"categories": len(s.svc.Store().Categories()),
		"ai":         s.svc.Available(),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data map[string]any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	data["Page"] = name
	data["Profile"] = s.svc.Settings().Get()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve listens on 127.0.0.1:port until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info("server listening", zap.String("url", "http://"+addr))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}
