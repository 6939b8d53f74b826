// Package pipeline runs the refresh cycle: collect new links, enrich mention
// links that lack an excerpt, and risk-analyze mentions that lack a risk
// color.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/repwatch/internal/actions"
	"github.com/TobiSchelling/repwatch/internal/collect"
	"github.com/TobiSchelling/repwatch/internal/config"
	"github.com/TobiSchelling/repwatch/internal/database"
	"github.com/TobiSchelling/repwatch/internal/mention"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult
	Collected  int
	Enriched   int
	Analyzed   int
	Failed     int
}

// Err returns the first step error, if any.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

// Collector gathers new links into the store.
type Collector interface {
	Collect(ctx context.Context) *collect.Result
	SourceCount() int
}

// Recorder receives pipeline metrics.
type Recorder interface {
	ObservePipelineRun(err error)
	ObservePipelineStep(step, result string, n int)
}

// Pipeline orchestrates the refresh steps.
type Pipeline struct {
	cfg       *config.Config
	db        *database.DB
	collector Collector
	svc       *actions.Service
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a pipeline. db may be nil, in which case run reports are not
// stored.
func New(cfg *config.Config, db *database.DB, collector Collector, svc *actions.Service, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		db:        db,
		collector: collector,
		svc:       svc,
		logger:    logger,
		now:       time.Now,
	}
}

// SetRecorder registers r to receive metrics for every run.
func (p *Pipeline) SetRecorder(r Recorder) {
	p.recorder = r
}

// Run executes collect, enrich and analyze, then stores a run report.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{StartedAt: p.now()}

	r.Steps = append(r.Steps, p.runCollect(ctx, r))
	if ctx.Err() == nil {
		r.Steps = append(r.Steps, p.runEnrich(ctx, r))
	}
	if ctx.Err() == nil {
		r.Steps = append(r.Steps, p.runAnalyze(ctx, r))
	}
	if err := ctx.Err(); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Cancelled", Err: err})
	}

	r.FinishedAt = p.now()
	p.report(r)
	return r
}

// DryRun shows what would be done without fetching or calling the model.
func (p *Pipeline) DryRun() *Result {
	r := &Result{StartedAt: p.now()}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] would query %d sources", p.collector.SourceCount()),
	})

	enrich := p.needingEnrichment()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("[dry-run] %d mentions lack an excerpt (limit %d)", len(enrich), p.cfg.Pipeline.MaxEnrich),
	})

	analyze := p.needingAnalysis()
	summary := fmt.Sprintf("[dry-run] %d mentions lack a risk rating (limit %d)", len(analyze), p.cfg.Pipeline.MaxAnalyze)
	if !p.svc.Available() {
		summary += "; no AI provider configured, step would be skipped"
	}
	r.Steps = append(r.Steps, StepResult{Name: "Analyze", Summary: summary})

	r.FinishedAt = p.now()
	return r
}

func (p *Pipeline) mentions() []mention.Mention {
	return mention.Project(p.svc.Store().Categories(), p.cfg.Categories.Mentions, p.now())
}

func (p *Pipeline) needingEnrichment() []mention.Mention {
	var out []mention.Mention
	for _, m := range p.mentions() {
		if m.Defaults.Excerpt != "" && m.URL != "" {
			out = append(out, m)
		}
	}
	return out
}

func (p *Pipeline) needingAnalysis() []mention.Mention {
	var out []mention.Mention
	for _, m := range p.mentions() {
		if m.RiskColor == "" {
			out = append(out, m)
		}
	}
	return out
}

func limit(ms []mention.Mention, n int) []mention.Mention {
	if n > 0 && len(ms) > n {
		return ms[:n]
	}
	return ms
}

func (p *Pipeline) runCollect(ctx context.Context, r *Result) StepResult {
	p.logger.Info("step 1/3: collecting links")
	res := p.collector.Collect(ctx)
	r.Collected = res.Added
	r.Failed += res.Failed
	p.observeStep("collect", "added", res.Added)
	p.observeStep("collect", "duplicate", res.Duplicates)
	p.observeStep("collect", "failed", res.Failed)
	return StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Added %d new links (%d found, %d duplicates, %d failed)", res.Added, res.TotalFound, res.Duplicates, res.Failed),
	}
}

func (p *Pipeline) runEnrich(ctx context.Context, r *Result) StepResult {
	p.logger.Info("step 2/3: enriching mentions without excerpts")
	targets := limit(p.needingEnrichment(), p.cfg.Pipeline.MaxEnrich)

	failed := 0
	for _, m := range targets {
		if ctx.Err() != nil {
			break
		}
		ok, err := p.svc.EnrichLink(ctx, m.Ref(), 500)
		switch {
		case err != nil:
			failed++
			p.logger.Debug("enrich failed", zap.String("url", m.URL), zap.Error(err))
		case ok:
			r.Enriched++
		}
	}
	r.Failed += failed
	p.observeStep("enrich", "ok", r.Enriched)
	p.observeStep("enrich", "failed", failed)
	return StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("Enriched %d of %d mentions, %d failed", r.Enriched, len(targets), failed),
	}
}

func (p *Pipeline) runAnalyze(ctx context.Context, r *Result) StepResult {
	if !p.svc.Available() {
		p.logger.Info("step 3/3: skipping analysis, no AI provider configured")
		return StepResult{Name: "Analyze", Summary: "Skipped: no AI provider configured"}
	}
	p.logger.Info("step 3/3: analyzing mention risk")
	targets := limit(p.needingAnalysis(), p.cfg.Pipeline.MaxAnalyze)

	failed := 0
	for _, m := range targets {
		if ctx.Err() != nil {
			break
		}
		_, ok, err := p.svc.AnalyzeMentionRisk(ctx, m.Ref())
		switch {
		case err != nil:
			failed++
			p.logger.Warn("risk analysis failed", zap.String("link", m.ID), zap.Error(err))
		case ok:
			r.Analyzed++
		}
	}
	r.Failed += failed
	p.observeStep("analyze", "ok", r.Analyzed)
	p.observeStep("analyze", "failed", failed)

	var err error
	if len(targets) > 0 && failed == len(targets) {
		err = errors.New("every analysis failed")
	}
	return StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("Analyzed %d of %d mentions, %d failed", r.Analyzed, len(targets), failed),
		Err:     err,
	}
}

func (p *Pipeline) observeStep(step, result string, n int) {
	if p.recorder != nil {
		p.recorder.ObservePipelineStep(step, result, n)
	}
}

func (p *Pipeline) report(r *Result) {
	err := r.Err()
	if p.recorder != nil {
		p.recorder.ObservePipelineRun(err)
	}
	if p.db == nil {
		return
	}
	report := database.RunReport{
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Collected:  r.Collected,
		Enriched:   r.Enriched,
		Analyzed:   r.Analyzed,
		Failed:     r.Failed,
	}
	if err != nil {
		msg := err.Error()
		report.Error = &msg
	}
	if _, err := p.db.InsertRunReport(report); err != nil {
		p.logger.Error("storing run report", zap.Error(err))
	}
}
