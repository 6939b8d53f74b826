// Package actions is the boundary for user-initiated operations. Each one
// validates its input, calls the AI flows or the page fetcher, turns failures
// into user-facing messages and writes results back to the link captured
// when the operation started. A result whose link has since disappeared is
// dropped.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/repwatch/internal/config"
	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
	"github.com/TobiSchelling/repwatch/internal/fetch"
	"github.com/TobiSchelling/repwatch/internal/flows"
	"github.com/TobiSchelling/repwatch/internal/legal"
	"github.com/TobiSchelling/repwatch/internal/mention"
	"github.com/TobiSchelling/repwatch/internal/settings"
)

// ErrLinkNotFound is returned when an operation names a link that does not
// exist when it starts.
var ErrLinkNotFound = errors.New("link not found")

// ActionError is an external-call failure translated for the user.
type ActionError struct {
	Op      string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// PageFetcher fetches a page and reduces it to text.
type PageFetcher interface {
	FetchText(ctx context.Context, target, selector string) (string, error)
}

// Service runs the actions against the encyclopedia.
type Service struct {
	store    *encyclopedia.Store
	flows    *flows.Client
	fetcher  PageFetcher
	settings *settings.Store
	cats     config.Categories
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Service.
func New(store *encyclopedia.Store, fc *flows.Client, fetcher PageFetcher, st *settings.Store, cats config.Categories, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		flows:    fc,
		fetcher:  fetcher,
		settings: st,
		cats:     cats,
		logger:   logger,
		now:      time.Now,
	}
}

// translate passes validation errors through untouched and wraps anything
// else in an ActionError carrying msg.
func (s *Service) translate(op, msg string, err error) error {
	if err == nil {
		return nil
	}
	if encyclopedia.IsValidation(err) {
		return err
	}
	if errors.Is(err, flows.ErrNoProvider) {
		msg = "No AI provider is configured. Set summarization.provider in the config."
	}
	s.logger.Warn("action failed", zap.String("op", op), zap.Error(err))
	return &ActionError{Op: op, Message: msg, Err: err}
}

func (s *Service) discarded(op string, ref encyclopedia.Ref) {
	s.logger.Info("target link gone, result discarded",
		zap.String("op", op),
		zap.String("category", ref.CategoryID),
		zap.String("link", ref.LinkID))
}

func (s *Service) resolve(ref encyclopedia.Ref) (encyclopedia.Link, encyclopedia.Category, error) {
	link, cat, ok := s.store.FindLink(ref)
	if !ok {
		return encyclopedia.Link{}, encyclopedia.Category{}, fmt.Errorf("%w: %s/%s", ErrLinkNotFound, ref.CategoryID, ref.LinkID)
	}
	return link, cat, nil
}

// AnalyzeMentionRisk asks the model to assess a mention and stores the risk
// color, sentiment and analysis on its link. applied is false when the link
// disappeared while the model was working.
func (s *Service) AnalyzeMentionRisk(ctx context.Context, ref encyclopedia.Ref) (res flows.RiskResult, applied bool, err error) {
	link, cat, err := s.resolve(ref)
	if err != nil {
		return res, false, err
	}
	m := mention.FromLink(link, cat, s.now())

	res, err = s.flows.AnalyzeRisk(ctx, flows.RiskInput{
		Title:          m.Title,
		ContentExcerpt: m.Excerpt,
		SourceType:     string(m.Kind),
		Platform:       m.PlatformLabel,
	})
	if err != nil {
		return res, false, s.translate("analyze_risk", "Failed to analyze mention risk. Please try again.", err)
	}

	color := res.Color()
	sentiment := res.SentimentValue()
	analysis := res.Analysis
	_, applied, err = s.store.UpdateLink(ref, encyclopedia.LinkPatch{
		RiskColor:    &color,
		Sentiment:    &sentiment,
		AnalysisText: &analysis,
	})
	if err != nil {
		return res, false, err
	}
	if !applied {
		s.discarded("analyze_risk", ref)
	}
	return res, applied, nil
}

// SummarizeMention replaces a mention's excerpt with a model summary.
func (s *Service) SummarizeMention(ctx context.Context, ref encyclopedia.Ref) (res flows.SummaryResult, applied bool, err error) {
	link, cat, err := s.resolve(ref)
	if err != nil {
		return res, false, err
	}
	m := mention.FromLink(link, cat, s.now())

	res, err = s.flows.Summarize(ctx, flows.SummaryInput{ContentExcerpt: m.Excerpt})
	if err != nil {
		return res, false, s.translate("summarize", "Failed to summarize excerpt. Please try again.", err)
	}

	summary := res.Summary
	_, applied, err = s.store.UpdateLink(ref, encyclopedia.LinkPatch{Excerpt: &summary})
	if err != nil {
		return res, false, err
	}
	if !applied {
		s.discarded("summarize", ref)
	}
	return res, applied, nil
}

// Evidence is the archived-evidence form.
type Evidence struct {
	ScreenshotURL string `validate:"omitempty,url"`
	WaybackLink   string `validate:"omitempty,url"`
	Notes         string `validate:"max=5000"`
}

// SaveEvidence records archived evidence for a mention.
func (s *Service) SaveEvidence(ref encyclopedia.Ref, ev Evidence) (bool, error) {
	if err := encyclopedia.Validate(ev); err != nil {
		return false, err
	}
	_, applied, err := s.store.UpdateLink(ref, encyclopedia.LinkPatch{
		ArchivedEvidence: &encyclopedia.ArchivedEvidence{
			ScreenshotURL: strings.TrimSpace(ev.ScreenshotURL),
			WaybackLink:   strings.TrimSpace(ev.WaybackLink),
			Notes:         ev.Notes,
		},
	})
	if err == nil && !applied {
		s.discarded("save_evidence", ref)
	}
	return applied, err
}

// GenerateContent writes derived copy about a news link. Nothing is stored.
func (s *Service) GenerateContent(ctx context.Context, ref encyclopedia.Ref, contentType string) (flows.DerivedResult, error) {
	link, _, err := s.resolve(ref)
	if err != nil {
		return flows.DerivedResult{}, err
	}
	if ref.CategoryID != s.cats.News {
		return flows.DerivedResult{}, &encyclopedia.ValidationError{Fields: []string{"content can only be generated from news links"}}
	}

	res, err := s.flows.GenerateDerivedContent(ctx, flows.DerivedInput{
		ProfileName: s.settings.Get().FullName,
		NewsTitle:   link.Title,
		NewsExcerpt: link.Excerpt,
		ContentType: flows.ContentType(contentType),
	})
	return res, s.translate("generate_content", "Failed to generate content. Please try again.", err)
}

// ScrapeResult is what was extracted from a scraped page.
type ScrapeResult struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Platform string `json:"platform"`
}

type scrapeInput struct {
	URL string `validate:"required,url"`
}

// Scrape fetches a page and asks the model for its title, summary and
// platform.
func (s *Service) Scrape(ctx context.Context, target, selector string) (ScrapeResult, error) {
	target = strings.TrimSpace(target)
	if err := encyclopedia.Validate(scrapeInput{URL: target}); err != nil {
		return ScrapeResult{}, err
	}

	text, err := s.fetcher.FetchText(ctx, target, selector)
	if err != nil {
		return ScrapeResult{}, s.translate("scrape", "Could not retrieve content from the URL. Please check if the URL is correct and accessible.", err)
	}
	if strings.TrimSpace(text) == "" {
		return ScrapeResult{}, &ActionError{Op: "scrape", Message: "The page has no readable text."}
	}

	page, err := s.flows.ExtractPage(ctx, flows.PageInput{TextContent: text})
	if err != nil {
		return ScrapeResult{}, s.translate("scrape", "Failed to scrape and analyze the URL. Please try again.", err)
	}
	return ScrapeResult{URL: target, Title: page.Title, Summary: page.Summary, Platform: page.Platform}, nil
}

// AddScrapedLink files a scrape result into a category, stamped now.
func (s *Service) AddScrapedLink(categoryID string, r ScrapeResult) (encyclopedia.Link, error) {
	now := s.now()
	return s.AddLink(categoryID, encyclopedia.NewLink{
		Title:         r.Title,
		URL:           r.URL,
		Excerpt:       r.Summary,
		PlatformLabel: r.Platform,
		Timestamp:     &now,
	})
}

// DMCARequest is the takedown form. Empty mention fields default to the
// case's title and first document (or link) URL.
type DMCARequest struct {
	MentionTitle            string
	MentionURL              string
	OriginalWorkDescription string
}

// DMCAOutcome is a drafted letter and where it was stored.
type DMCAOutcome struct {
	Letter  string `json:"letter"`
	Key     string `json:"key"`
	Applied bool   `json:"applied"`
}

// GenerateDMCA drafts a takedown notice for a legal case using the profile
// settings and attaches it to the case.
func (s *Service) GenerateDMCA(ctx context.Context, ref encyclopedia.Ref, req DMCARequest) (DMCAOutcome, error) {
	link, cat, err := s.resolve(ref)
	if err != nil {
		return DMCAOutcome{}, err
	}
	c := legal.FromLink(link, cat, s.now())

	in := flows.DMCAInput{
		MentionTitle:            req.MentionTitle,
		MentionURL:              strings.TrimSpace(req.MentionURL),
		OriginalWorkDescription: strings.TrimSpace(req.OriginalWorkDescription),
	}
	if in.MentionTitle == "" {
		in.MentionTitle = c.Title
	}
	if in.MentionURL == "" {
		in.MentionURL = link.URL
		if len(c.Documents) > 0 && c.Documents[0].URL != "" {
			in.MentionURL = c.Documents[0].URL
		}
	}
	profile := s.settings.Get()
	in.FullName = profile.FullName
	in.Address = profile.Address
	in.Email = profile.Email
	in.PhoneNumber = profile.PhoneNumber

	res, err := s.flows.GenerateDMCALetter(ctx, in)
	if err != nil {
		return DMCAOutcome{}, s.translate("dmca_letter", "Failed to generate DMCA letter. Please try again.", err)
	}

	key, applied, err := legal.AttachLetter(s.store, ref, encyclopedia.LetterDMCA, res.Letter, s.now())
	if err != nil {
		return DMCAOutcome{}, err
	}
	if !applied {
		s.discarded("dmca_letter", ref)
	}
	return DMCAOutcome{Letter: res.Letter, Key: key, Applied: applied}, nil
}

// EnrichLink fetches a link's page and stores the start of its text as the
// excerpt. Links that already have an excerpt are left alone.
func (s *Service) EnrichLink(ctx context.Context, ref encyclopedia.Ref, maxLen int) (bool, error) {
	link, _, err := s.resolve(ref)
	if err != nil {
		return false, err
	}
	if link.Excerpt != "" {
		return false, nil
	}

	text, err := s.fetcher.FetchText(ctx, link.URL, "")
	if err != nil {
		return false, s.translate("enrich", "Could not retrieve content from the URL.", err)
	}
	excerpt := clip(text, maxLen)
	if excerpt == "" {
		return false, nil
	}

	_, applied, err := s.store.UpdateLink(ref, encyclopedia.LinkPatch{Excerpt: &excerpt})
	if err == nil && !applied {
		s.discarded("enrich", ref)
	}
	return applied, err
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

// AddLink validates and adds a link.
func (s *Service) AddLink(categoryID string, in encyclopedia.NewLink) (encyclopedia.Link, error) {
	in.URL = strings.TrimSpace(in.URL)
	in.Title = strings.TrimSpace(in.Title)
	return s.store.AddLink(categoryID, in)
}

// AddCategory validates and adds a category.
func (s *Service) AddCategory(in encyclopedia.NewCategory) (encyclopedia.Category, error) {
	in.Title = strings.TrimSpace(in.Title)
	return s.store.AddCategory(in)
}

// Store returns the underlying encyclopedia store.
func (s *Service) Store() *encyclopedia.Store {
	return s.store
}

// Settings returns the settings store.
func (s *Service) Settings() *settings.Store {
	return s.settings
}

// Categories returns the configured category ids.
func (s *Service) Categories() config.Categories {
	return s.cats
}

// Available reports whether AI actions can run.
func (s *Service) Available() bool {
	return s.flows.Available()
}

var _ PageFetcher = (*fetch.Fetcher)(nil)
