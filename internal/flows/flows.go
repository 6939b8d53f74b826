// Package flows wraps each AI task as a typed request/response call: the
// input is validated, the prompt is rendered, and the model's JSON answer is
// decoded and checked before it is returned.
package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
	"github.com/TobiSchelling/repwatch/internal/llm"
)

// Flow names, used in logs and metrics.
const (
	FlowRisk    = "analyze_risk"
	FlowSummary = "summarize"
	FlowDerived = "derived_content"
	FlowPage    = "extract_page"
	FlowDMCA    = "dmca_letter"
)

// ErrNoProvider is returned when no LLM backend is available.
var ErrNoProvider = errors.New("no LLM provider configured")

// SchemaError reports a model response that did not match the expected shape.
type SchemaError struct {
	Flow   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: response does not match schema: %s", e.Flow, e.Reason)
}

// Observer is notified after every flow call.
type Observer interface {
	ObserveFlow(flow string, err error)
}

var validate = validator.New()

// Client runs flows against a provider.
type Client struct {
	provider  llm.Provider
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
	observer  Observer
}

// Option configures a Client.
type Option func(*Client)

// WithObserver reports each call to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithTimeout bounds each call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a flow client. A nil provider makes every call fail with
// ErrNoProvider.
func New(provider llm.Provider, maxTokens int, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	c := &Client{provider: provider, maxTokens: maxTokens, timeout: 2 * time.Minute, logger: logger}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Available reports whether a provider is configured.
func (c *Client) Available() bool {
	return c.provider != nil
}

// RiskInput describes a mention to assess.
type RiskInput struct {
	Title          string `validate:"max=1000"`
	ContentExcerpt string `validate:"required"`
	SourceType     string
	Platform       string
}

// RiskResult is the model's assessment.
type RiskResult struct {
	RiskLevel string `json:"riskLevel" validate:"required"`
	Sentiment string `json:"sentiment" validate:"required"`
	Analysis  string `json:"analysis" validate:"required"`
}

// Color maps the risk level onto the stored risk tier. Anything other than
// RED or GREEN is treated as the middle tier.
func (r RiskResult) Color() encyclopedia.RiskColor {
	switch strings.ToUpper(strings.TrimSpace(r.RiskLevel)) {
	case "RED":
		return encyclopedia.RiskRed
	case "GREEN":
		return encyclopedia.RiskGreen
	default:
		return encyclopedia.RiskOrange
	}
}

// SentimentValue normalizes the sentiment; unknown values become neutral.
func (r RiskResult) SentimentValue() encyclopedia.Sentiment {
	switch s := encyclopedia.Sentiment(strings.ToLower(strings.TrimSpace(r.Sentiment))); s {
	case encyclopedia.SentimentPositive, encyclopedia.SentimentNegative, encyclopedia.SentimentNeutral:
		return s
	default:
		return encyclopedia.SentimentNeutral
	}
}

// AnalyzeRisk assesses the reputational risk of a mention.
func (c *Client) AnalyzeRisk(ctx context.Context, in RiskInput) (RiskResult, error) {
	var out RiskResult
	prompt := fmt.Sprintf(riskPrompt, in.Title, truncate(in.ContentExcerpt, 4000), orUnknown(in.SourceType), orUnknown(in.Platform))
	err := c.run(ctx, FlowRisk, in, prompt, &out)
	return out, err
}

// SummaryInput is the text to summarize.
type SummaryInput struct {
	ContentExcerpt string `validate:"required"`
}

// SummaryResult holds the summary.
type SummaryResult struct {
	Summary string `json:"summary" validate:"required"`
}

// Summarize condenses an excerpt.
func (c *Client) Summarize(ctx context.Context, in SummaryInput) (SummaryResult, error) {
	var out SummaryResult
	prompt := fmt.Sprintf(summaryPrompt, truncate(in.ContentExcerpt, 8000))
	err := c.run(ctx, FlowSummary, in, prompt, &out)
	return out, err
}

// ContentType is a kind of derived content.
type ContentType string

const (
	ContentSummary      ContentType = "Summary"
	ContentTweet        ContentType = "Tweet"
	ContentLinkedInPost ContentType = "LinkedIn Post"
	ContentKeyTakeaways ContentType = "Key Takeaways"
	ContentPressSnippet ContentType = "Press Release Snippet"
)

// ContentTypes lists the supported content types.
func ContentTypes() []ContentType {
	return []ContentType{ContentSummary, ContentTweet, ContentLinkedInPost, ContentKeyTakeaways, ContentPressSnippet}
}

// ParseContentType matches s case-insensitively against the supported types.
func ParseContentType(s string) (ContentType, bool) {
	for _, t := range ContentTypes() {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// DerivedInput describes the news item to write about.
type DerivedInput struct {
	ProfileName string
	NewsTitle   string `validate:"required"`
	NewsExcerpt string
	ContentType ContentType `validate:"required"`
}

// DerivedResult holds the generated copy.
type DerivedResult struct {
	GeneratedText string `json:"generatedText" validate:"required"`
}

// GenerateDerivedContent writes social or PR copy about a news item.
func (c *Client) GenerateDerivedContent(ctx context.Context, in DerivedInput) (DerivedResult, error) {
	var out DerivedResult
	if in.ContentType != "" {
		ct, ok := ParseContentType(string(in.ContentType))
		if !ok {
			return out, &encyclopedia.ValidationError{Fields: []string{fmt.Sprintf("contenttype %q is not supported", in.ContentType)}}
		}
		in.ContentType = ct
	}
	profile := in.ProfileName
	if profile == "" {
		profile = "the profile owner"
	}
	prompt := fmt.Sprintf(derivedPrompt, profile, in.ContentType, in.NewsTitle, truncate(in.NewsExcerpt, 4000))
	err := c.run(ctx, FlowDerived, in, prompt, &out)
	return out, err
}

// PageInput is the visible text of a fetched page.
type PageInput struct {
	TextContent string `validate:"required"`
}

// PageResult is what the model extracted from a page.
type PageResult struct {
	Title    string `json:"title" validate:"required"`
	Summary  string `json:"summary" validate:"required"`
	Platform string `json:"platform"`
}

// ExtractPage pulls a title, summary and platform name out of page text.
func (c *Client) ExtractPage(ctx context.Context, in PageInput) (PageResult, error) {
	var out PageResult
	prompt := fmt.Sprintf(pagePrompt, truncate(in.TextContent, 25000))
	err := c.run(ctx, FlowPage, in, prompt, &out)
	return out, err
}

// DMCAInput carries the details a takedown notice needs.
type DMCAInput struct {
	MentionTitle            string
	MentionURL              string `validate:"required,url"`
	OriginalWorkDescription string `validate:"required"`
	FullName                string `validate:"required"`
	Address                 string
	Email                   string `validate:"required,email"`
	PhoneNumber             string
}

// DMCAResult holds the drafted notice.
type DMCAResult struct {
	Letter string `json:"letter" validate:"required"`
}

// GenerateDMCALetter drafts a DMCA takedown notice.
func (c *Client) GenerateDMCALetter(ctx context.Context, in DMCAInput) (DMCAResult, error) {
	var out DMCAResult
	prompt := fmt.Sprintf(dmcaPrompt, in.MentionTitle, in.MentionURL, in.OriginalWorkDescription,
		in.FullName, orUnknown(in.Address), in.Email, orUnknown(in.PhoneNumber))
	err := c.run(ctx, FlowDMCA, in, prompt, &out)
	return out, err
}

func (c *Client) run(ctx context.Context, flow string, in any, prompt string, out any) (err error) {
	defer func() {
		if c.observer != nil {
			c.observer.ObserveFlow(flow, err)
		}
	}()

	if err := encyclopedia.Validate(in); err != nil {
		return err
	}
	if c.provider == nil {
		return ErrNoProvider
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.provider.Generate(ctx, prompt, c.maxTokens)
	if err != nil {
		c.logger.Warn("flow call failed", zap.String("flow", flow), zap.Error(err))
		return fmt.Errorf("%s: %w", flow, err)
	}

	if err := llm.DecodeJSON(text, out); err != nil {
		c.logger.Warn("flow response unparsable", zap.String("flow", flow), zap.Error(err))
		return &SchemaError{Flow: flow, Reason: err.Error()}
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &SchemaError{Flow: flow, Reason: fmt.Sprintf("field %s is %s", verrs[0].Field(), verrs[0].Tag())}
		}
		return &SchemaError{Flow: flow, Reason: err.Error()}
	}

	c.logger.Debug("flow call complete", zap.String("flow", flow), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
