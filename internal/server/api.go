package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/TobiSchelling/repwatch/internal/actions"
	"github.com/TobiSchelling/repwatch/internal/analytics"
	"github.com/TobiSchelling/repwatch/internal/database"
	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
	"github.com/TobiSchelling/repwatch/internal/legal"
	"github.com/TobiSchelling/repwatch/internal/mention"
	"github.com/TobiSchelling/repwatch/internal/settings"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		ve *encyclopedia.ValidationError
		ae *actions.ActionError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, actions.ErrLinkNotFound), errors.Is(err, encyclopedia.ErrCategoryNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, encyclopedia.ErrDuplicateCategory):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &ae):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: ae.Message})
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &encyclopedia.ValidationError{Fields: []string{fmt.Sprintf("body: %v", err)}}
	}
	return nil
}

type appliedResponse struct {
	Applied bool `json:"applied"`
}

// Categories

func (s *Server) apiListCategories(w http.ResponseWriter, r *http.Request) {
	cats := encyclopedia.Filter(s.svc.Store().Categories(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, cats)
}

type categoryRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Verified    bool   `json:"verified"`
	Disputed    bool   `json:"disputed"`
}

func (s *Server) apiAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.svc.AddCategory(encyclopedia.NewCategory(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type categoryPatchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Verified    *bool   `json:"verified"`
	Disputed    *bool   `json:"disputed"`
}

func (s *Server) apiUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.svc.Store().UpdateCategory(chi.URLParam(r, "id"), encyclopedia.CategoryPatch(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type linkRequest struct {
	Title         string                       `json:"title"`
	URL           string                       `json:"url"`
	Excerpt       string                       `json:"excerpt"`
	PlatformLabel string                       `json:"platformLabel"`
	Timestamp     *time.Time                   `json:"timestamp"`
	KindOverride  encyclopedia.Kind            `json:"kindOverride"`
	Legal         *encyclopedia.LegalExtension `json:"legal"`
}

func (s *Server) apiAddLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	l, err := s.svc.AddLink(chi.URLParam(r, "id"), encyclopedia.NewLink(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

type linkPatchRequest struct {
	Title            *string                        `json:"title"`
	URL              *string                        `json:"url"`
	Excerpt          *string                        `json:"excerpt"`
	PlatformLabel    *string                        `json:"platformLabel"`
	Timestamp        *time.Time                     `json:"timestamp"`
	Sentiment        *encyclopedia.Sentiment        `json:"sentiment"`
	RiskColor        *encyclopedia.RiskColor        `json:"riskColor"`
	AnalysisText     *string                        `json:"analysisText"`
	ArchivedEvidence *encyclopedia.ArchivedEvidence `json:"archivedEvidence"`
	KindOverride     *encyclopedia.Kind             `json:"kindOverride"`
	Legal            *encyclopedia.LegalExtension   `json:"legal"`
}

func (s *Server) apiUpdateLink(w http.ResponseWriter, r *http.Request) {
	var req linkPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.KindOverride != nil && *req.KindOverride != "" && !encyclopedia.ValidKind(*req.KindOverride) {
		s.writeError(w, &encyclopedia.ValidationError{Fields: []string{"kindoverride is invalid"}})
		return
	}
	ref := encyclopedia.Ref{CategoryID: chi.URLParam(r, "id"), LinkID: chi.URLParam(r, "linkID")}
	l, ok, err := s.svc.Store().UpdateLink(ref, encyclopedia.LinkPatch(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, appliedResponse{Applied: false})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Applied bool              `json:"applied"`
		Link    encyclopedia.Link `json:"link"`
	}{true, l})
}

// Mentions

func (s *Server) apiListMentions(w http.ResponseWriter, r *http.Request) {
	ms := mention.Project(s.svc.Store().Categories(), s.svc.Categories().Mentions, s.now())
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) apiUpdateMention(w http.ResponseWriter, r *http.Request) {
	var m mention.Mention
	if err := decodeJSON(r, &m); err != nil {
		s.writeError(w, err)
		return
	}
	ok, err := mention.ApplyEdit(s.svc.Store(), m)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appliedResponse{Applied: ok})
}

func refFromPath(r *http.Request) encyclopedia.Ref {
	return encyclopedia.Ref{CategoryID: chi.URLParam(r, "categoryID"), LinkID: chi.URLParam(r, "linkID")}
}

func (s *Server) apiAnalyzeMention(w http.ResponseWriter, r *http.Request) {
	res, ok, err := s.svc.AnalyzeMentionRisk(r.Context(), refFromPath(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied":   ok,
		"riskLevel": res.RiskLevel,
		"riskColor": res.Color(),
		"sentiment": res.SentimentValue(),
		"analysis":  res.Analysis,
	})
}

func (s *Server) apiSummarizeMention(w http.ResponseWriter, r *http.Request) {
	res, ok, err := s.svc.SummarizeMention(r.Context(), refFromPath(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": ok, "summary": res.Summary})
}

type evidenceRequest struct {
	ScreenshotURL string `json:"screenshotUrl"`
	WaybackLink   string `json:"waybackLink"`
	Notes         string `json:"notes"`
}

func (s *Server) apiSaveEvidence(w http.ResponseWriter, r *http.Request) {
	var req evidenceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ok, err := s.svc.SaveEvidence(refFromPath(r), actions.Evidence(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appliedResponse{Applied: ok})
}

// Legal cases

func (s *Server) apiListCases(w http.ResponseWriter, r *http.Request) {
	cs := legal.Project(s.svc.Store().Categories(), s.svc.Categories().Legal, s.now())
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) apiUpdateCase(w http.ResponseWriter, r *http.Request) {
	var c legal.Case
	if err := decodeJSON(r, &c); err != nil {
		s.writeError(w, err)
		return
	}
	ok, err := legal.ApplyEdit(s.svc.Store(), c)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appliedResponse{Applied: ok})
}

type dmcaRequest struct {
	MentionTitle            string `json:"mentionTitle"`
	MentionURL              string `json:"mentionUrl"`
	OriginalWorkDescription string `json:"originalWorkDescription"`
}

func (s *Server) apiGenerateDMCA(w http.ResponseWriter, r *http.Request) {
	var req dmcaRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ref := encyclopedia.Ref{CategoryID: s.svc.Categories().Legal, LinkID: chi.URLParam(r, "linkID")}
	out, err := s.svc.GenerateDMCA(r.Context(), ref, actions.DMCARequest(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Analytics and links

func (s *Server) apiAnalytics(w http.ResponseWriter, r *http.Request) {
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.writeError(w, &encyclopedia.ValidationError{Fields: []string{err.Error()}})
		return
	}
	links := analytics.CollectLinks(s.svc.Store().Categories(), s.svc.Categories().Analytics)
	writeJSON(w, http.StatusOK, map[string]any{
		"period":  period,
		"buckets": analytics.Aggregate(links, period, s.now()),
	})
}

type uniqueLinkResponse struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	DisplayTitle string `json:"displayTitle"`
}

func (s *Server) apiUniqueLinks(w http.ResponseWriter, r *http.Request) {
	links := encyclopedia.UniqueLinks(s.svc.Store().Categories())
	out := make([]uniqueLinkResponse, len(links))
	for i, l := range links {
		out[i] = uniqueLinkResponse{Title: l.Title, URL: l.URL, DisplayTitle: l.DisplayTitle()}
	}
	writeJSON(w, http.StatusOK, out)
}

// AI tools

type scrapeRequest struct {
	URL      string `json:"url"`
	Selector string `json:"selector"`
	AddTo    string `json:"addTo"`
}

func (s *Server) apiScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.svc.Scrape(r.Context(), req.URL, req.Selector)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.AddTo == "" {
		writeJSON(w, http.StatusOK, map[string]any{"result": res})
		return
	}
	l, err := s.svc.AddScrapedLink(req.AddTo, res)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"result": res, "link": l})
}

type generateRequest struct {
	CategoryID  string `json:"categoryId"`
	LinkID      string `json:"linkId"`
	ContentType string `json:"contentType"`
}

func (s *Server) apiGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.CategoryID == "" {
		req.CategoryID = s.svc.Categories().News
	}
	res, err := s.svc.GenerateContent(r.Context(), encyclopedia.Ref{CategoryID: req.CategoryID, LinkID: req.LinkID}, req.ContentType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Settings and runs

func (s *Server) apiGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Settings().Get())
}

func (s *Server) apiSaveSettings(w http.ResponseWriter, r *http.Request) {
	var next settings.Settings
	if err := decodeJSON(r, &next); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Settings().Save(next); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (s *Server) apiRuns(w http.ResponseWriter, r *http.Request) {
	runs := []database.RunReport{}
	if s.db != nil {
		recent, err := s.db.RecentRunReports(20)
		if err != nil {
			s.writeError(w, err)
			return
		}
		runs = append(runs, recent...)
	}
	writeJSON(w, http.StatusOK, runs)
}
