package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/repwatch/internal/actions"
	"github.com/TobiSchelling/repwatch/internal/collect"
	"github.com/TobiSchelling/repwatch/internal/config"
	"github.com/TobiSchelling/repwatch/internal/database"
	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
	"github.com/TobiSchelling/repwatch/internal/flows"
	"github.com/TobiSchelling/repwatch/internal/llm"
	"github.com/TobiSchelling/repwatch/internal/llm/llmtest"
	"github.com/TobiSchelling/repwatch/internal/settings"
)

type fakeCollector struct {
	store *encyclopedia.Store
	calls int
}

func (f *fakeCollector) Collect(ctx context.Context) *collect.Result {
	f.calls++
	r := &collect.Result{ByCategory: map[string]int{}}
	if _, err := f.store.AddLink(encyclopedia.CategoryBlogs, encyclopedia.NewLink{Title: "Fresh post", URL: "https://blog.example/fresh"}); err == nil {
		r.TotalFound, r.Added = 1, 1
	}
	return r
}

func (f *fakeCollector) SourceCount() int { return 2 }

type pageText string

func (p pageText) FetchText(context.Context, string, string) (string, error) {
	return string(p), nil
}

type recorder struct {
	runs  []error
	steps map[string]int
}

func (r *recorder) ObservePipelineRun(err error) { r.runs = append(r.runs, err) }
func (r *recorder) ObservePipelineStep(step, result string, n int) {
	r.steps[step+"/"+result] += n
}

func setup(t *testing.T, provider llm.Provider) (*Pipeline, *database.DB, *encyclopedia.Store, *fakeCollector) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := encyclopedia.NewStore(db, nil)
	store.Load()
	cfg := config.Default()
	st := settings.NewStore(db, settings.Defaults("Jane Example", "", "", ""), nil)
	svc := actions.New(store, flows.New(provider, 256, nil), pageText("Body text of the fresh post."), st, cfg.Categories, nil)

	fc := &fakeCollector{store: store}
	return New(cfg, db, fc, svc, nil), db, store, fc
}

func TestRunAllSteps(t *testing.T) {
	provider := &llmtest.Provider{Default: llmtest.JSON(flows.RiskResult{RiskLevel: "GREEN", Sentiment: "positive", Analysis: "Harmless."})}
	p, db, store, fc := setup(t, provider)
	rec := &recorder{steps: map[string]int{}}
	p.SetRecorder(rec)

	r := p.Run(context.Background())

	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.calls != 1 {
		t.Errorf("expected 1 collect call, got %d", fc.calls)
	}
	if len(r.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(r.Steps))
	}
	if r.Collected != 1 || r.Enriched != 1 {
		t.Errorf("collected=%d enriched=%d, want 1/1", r.Collected, r.Enriched)
	}
	// 6 seeded mention links plus the collected one.
	if r.Analyzed != 7 {
		t.Errorf("expected 7 analyzed, got %d", r.Analyzed)
	}

	cat, _ := store.Category(encyclopedia.CategoryBlogs)
	var fresh encyclopedia.Link
	for _, l := range cat.Links {
		if l.URL == "https://blog.example/fresh" {
			fresh = l
		}
	}
	if fresh.Excerpt != "Body text of the fresh post." {
		t.Errorf("excerpt = %q", fresh.Excerpt)
	}
	if fresh.RiskColor != encyclopedia.RiskGreen {
		t.Errorf("risk color = %q", fresh.RiskColor)
	}

	latest, err := db.LatestRunReport()
	if err != nil || latest == nil {
		t.Fatalf("LatestRunReport: %v, %v", latest, err)
	}
	if latest.Analyzed != 7 || latest.Error != nil {
		t.Errorf("unexpected report: %+v", latest)
	}
	if len(rec.runs) != 1 || rec.runs[0] != nil {
		t.Errorf("recorder runs = %v", rec.runs)
	}
	if rec.steps["analyze/ok"] != 7 {
		t.Errorf("recorder analyze/ok = %d", rec.steps["analyze/ok"])
	}
}

func TestRunRespectsMaxAnalyze(t *testing.T) {
	provider := &llmtest.Provider{Default: llmtest.JSON(flows.RiskResult{RiskLevel: "RED", Sentiment: "negative", Analysis: "x"})}
	p, _, _, _ := setup(t, provider)
	p.cfg.Pipeline.MaxAnalyze = 2

	r := p.Run(context.Background())
	if r.Analyzed != 2 {
		t.Errorf("expected 2 analyzed, got %d", r.Analyzed)
	}
	if len(provider.Prompts()) != 2 {
		t.Errorf("expected 2 prompts, got %d", len(provider.Prompts()))
	}
}

func TestRunWithoutProviderSkipsAnalysis(t *testing.T) {
	p, _, _, _ := setup(t, nil)

	r := p.Run(context.Background())
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}
	if !strings.HasPrefix(r.Steps[2].Summary, "Skipped") {
		t.Errorf("analyze summary = %q", r.Steps[2].Summary)
	}
}

func TestRunAllAnalysesFailing(t *testing.T) {
	p, db, _, _ := setup(t, &llmtest.Provider{Err: errors.New("model offline")})

	r := p.Run(context.Background())
	if r.Err() == nil {
		t.Fatal("expected an error when every analysis fails")
	}
	latest, _ := db.LatestRunReport()
	if latest == nil || latest.Error == nil {
		t.Fatalf("expected run report with error, got %+v", latest)
	}
}

func TestRunCancelled(t *testing.T) {
	p, _, _, _ := setup(t, &llmtest.Provider{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := p.Run(ctx)
	if !errors.Is(r.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", r.Err())
	}
}

func TestDryRun(t *testing.T) {
	p, db, store, fc := setup(t, nil)
	p.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	before := len(store.Categories())

	r := p.DryRun()

	if fc.calls != 0 {
		t.Error("dry run must not collect")
	}
	if len(r.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(r.Steps))
	}
	for _, s := range r.Steps {
		if !strings.HasPrefix(s.Summary, "[dry-run]") {
			t.Errorf("summary %q lacks dry-run prefix", s.Summary)
		}
	}
	if !strings.Contains(r.Steps[0].Summary, "2 sources") {
		t.Errorf("collect summary = %q", r.Steps[0].Summary)
	}
	if !strings.Contains(r.Steps[2].Summary, "6 mentions") {
		t.Errorf("analyze summary = %q", r.Steps[2].Summary)
	}
	if len(store.Categories()) != before {
		t.Error("dry run changed the store")
	}
	if latest, _ := db.LatestRunReport(); latest != nil {
		t.Error("dry run stored a report")
	}
}
