package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/TobiSchelling/repwatch/internal/actions"
	"github.com/TobiSchelling/repwatch/internal/analytics"
	"github.com/TobiSchelling/repwatch/internal/database"
	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
	"github.com/TobiSchelling/repwatch/internal/legal"
	"github.com/TobiSchelling/repwatch/internal/mention"
)

// userMessage turns an error into something fit for a flash banner.
func userMessage(err error) string {
	var (
		ve *encyclopedia.ValidationError
		ae *actions.ActionError
	)
	switch {
	case errors.As(err, &ve):
		return "Please fix: " + strings.Join(ve.Fields, "; ")
	case errors.As(err, &ae):
		return ae.Message
	default:
		return err.Error()
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cats := s.svc.Store().Categories()
	now := s.now()
	ms := mention.Project(cats, s.svc.Categories().Mentions, now)
	cases := legal.Project(cats, s.svc.Categories().Legal, now)

	links := 0
	for _, c := range cats {
		links += len(c.Links)
	}
	risk := map[encyclopedia.RiskColor]int{}
	unrated := 0
	for _, m := range ms {
		if m.RiskColor == "" {
			unrated++
			continue
		}
		risk[m.RiskColor]++
	}

	var latest *database.RunReport
	if s.db != nil {
		latest, _ = s.db.LatestRunReport()
	}

	recent := ms
	if len(recent) > 5 {
		recent = recent[:5]
	}
	s.render(w, "index.html", map[string]any{
		"Categories": len(cats),
		"Links":      links,
		"Mentions":   len(ms),
		"Cases":      len(cases),
		"Red":        risk[encyclopedia.RiskRed],
		"Orange":     risk[encyclopedia.RiskOrange],
		"Green":      risk[encyclopedia.RiskGreen],
		"Unrated":    unrated,
		"Recent":     recent,
		"LatestRun":  latest,
		"AI":         s.svc.Available(),
	})
}

func (s *Server) encyclopediaPage(w http.ResponseWriter, r *http.Request, flash string) {
	q := r.URL.Query().Get("q")
	s.render(w, "encyclopedia.html", map[string]any{
		"Query":      q,
		"Categories": encyclopedia.Filter(s.svc.Store().Categories(), q),
		"Error":      flash,
	})
}

func (s *Server) handleEncyclopedia(w http.ResponseWriter, r *http.Request) {
	s.encyclopediaPage(w, r, "")
}

func (s *Server) handleAddCategoryForm(w http.ResponseWriter, r *http.Request) {
	_, err := s.svc.AddCategory(encyclopedia.NewCategory{
		Title:       r.FormValue("title"),
		Description: strings.TrimSpace(r.FormValue("description")),
	})
	if err != nil {
		s.encyclopediaPage(w, r, userMessage(err))
		return
	}
	http.Redirect(w, r, "/encyclopedia", http.StatusSeeOther)
}

func (s *Server) handleAddLinkForm(w http.ResponseWriter, r *http.Request) {
	_, err := s.svc.AddLink(chi.URLParam(r, "id"), encyclopedia.NewLink{
		Title:         r.FormValue("title"),
		URL:           r.FormValue("url"),
		Excerpt:       strings.TrimSpace(r.FormValue("excerpt")),
		PlatformLabel: strings.TrimSpace(r.FormValue("platform")),
	})
	if err != nil {
		s.encyclopediaPage(w, r, userMessage(err))
		return
	}
	http.Redirect(w, r, "/encyclopedia#"+chi.URLParam(r, "id"), http.StatusSeeOther)
}

func (s *Server) mentionsPage(w http.ResponseWriter, flash string) {
	s.render(w, "mentions.html", map[string]any{
		"Mentions": mention.Project(s.svc.Store().Categories(), s.svc.Categories().Mentions, s.now()),
		"AI":       s.svc.Available(),
		"Error":    flash,
	})
}

func (s *Server) handleMentions(w http.ResponseWriter, r *http.Request) {
	s.mentionsPage(w, "")
}

func (s *Server) handleAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	if _, _, err := s.svc.AnalyzeMentionRisk(r.Context(), refFromPath(r)); err != nil {
		s.mentionsPage(w, userMessage(err))
		return
	}
	http.Redirect(w, r, "/mentions", http.StatusSeeOther)
}

func (s *Server) handleSummarizeForm(w http.ResponseWriter, r *http.Request) {
	if _, _, err := s.svc.SummarizeMention(r.Context(), refFromPath(r)); err != nil {
		s.mentionsPage(w, userMessage(err))
		return
	}
	http.Redirect(w, r, "/mentions", http.StatusSeeOther)
}

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	s.render(w, "cases.html", map[string]any{
		"Cases": legal.Project(s.svc.Store().Categories(), s.svc.Categories().Legal, s.now()),
	})
}

type chartBar struct {
	analytics.Bucket
	Percent int
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		period = analytics.Monthly
	}
	links := analytics.CollectLinks(s.svc.Store().Categories(), s.svc.Categories().Analytics)
	buckets := analytics.Aggregate(links, period, s.now())

	peak := 0
	for _, b := range buckets {
		peak = max(peak, b.Count)
	}
	bars := make([]chartBar, len(buckets))
	for i, b := range buckets {
		bars[i] = chartBar{Bucket: b}
		if peak > 0 {
			bars[i].Percent = b.Count * 100 / peak
		}
	}
	s.render(w, "analytics.html", map[string]any{
		"Period": period,
		"Bars":   bars,
	})
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	s.render(w, "links.html", map[string]any{
		"Links": encyclopedia.UniqueLinks(s.svc.Store().Categories()),
	})
}

func (s *Server) handleScrapePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "scrape.html", map[string]any{
		"Categories": s.svc.Store().Categories(),
		"AI":         s.svc.Available(),
	})
}

func (s *Server) handleScrapeForm(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Categories": s.svc.Store().Categories(),
		"AI":         s.svc.Available(),
		"URL":        r.FormValue("url"),
		"Selector":   r.FormValue("selector"),
	}
	res, err := s.svc.Scrape(r.Context(), r.FormValue("url"), r.FormValue("selector"))
	if err != nil {
		data["Error"] = userMessage(err)
		s.render(w, "scrape.html", data)
		return
	}
	data["Result"] = res
	if addTo := r.FormValue("add_to"); addTo != "" {
		if _, err := s.svc.AddScrapedLink(addTo, res); err != nil {
			data["Error"] = userMessage(err)
		} else {
			data["Added"] = addTo
		}
	}
	s.render(w, "scrape.html", data)
}

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "settings.html", map[string]any{"Settings": s.svc.Settings().Get()})
}

func (s *Server) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	next := s.svc.Settings().Get()
	next.FullName = strings.TrimSpace(r.FormValue("full_name"))
	next.Email = strings.TrimSpace(r.FormValue("email"))
	next.Address = strings.TrimSpace(r.FormValue("address"))
	next.PhoneNumber = strings.TrimSpace(r.FormValue("phone_number"))
	next.WhatsAppNumber = strings.TrimSpace(r.FormValue("whatsapp_number"))
	next.EmailNotifications = r.FormValue("email_notifications") == "on"
	next.PushNotifications = r.FormValue("push_notifications") == "on"
	next.WhatsAppNotifications = r.FormValue("whatsapp_notifications") == "on"

	if err := s.svc.Settings().Save(next); err != nil {
		s.render(w, "settings.html", map[string]any{"Settings": next, "Error": userMessage(err)})
		return
	}
	s.render(w, "settings.html", map[string]any{"Settings": next, "Saved": true})
}
