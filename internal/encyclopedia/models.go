package encyclopedia

import "time"

// Kind is the view-level classification of a link.
type Kind string

const (
	KindNews   Kind = "news"
	KindSocial Kind = "social"
	KindSearch Kind = "search"
	KindLegal  Kind = "legal"
	KindOther  Kind = "other"
)

// Sentiment is the AI-assessed tone of a link.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// RiskColor is one of the three risk tiers (high, medium, low).
type RiskColor string

const (
	RiskRed    RiskColor = "red"
	RiskOrange RiskColor = "orange"
	RiskGreen  RiskColor = "green"
)

// CaseStatus is the lifecycle state of a legal matter.
type CaseStatus string

const (
	CaseActive    CaseStatus = "Active"
	CaseSettled   CaseStatus = "Settled"
	CasePotential CaseStatus = "Potential"
	CaseDismissed CaseStatus = "Dismissed"
	CaseAppealed  CaseStatus = "Appealed"
)

// RemovalStatus tracks a takedown request.
type RemovalStatus string

const (
	RemovalPending       RemovalStatus = "Pending"
	RemovalSuccessful    RemovalStatus = "Successful"
	RemovalFailed        RemovalStatus = "Failed"
	RemovalNotApplicable RemovalStatus = "Not Applicable"
)

// LetterType is the kind of a generated legal letter.
type LetterType string

const (
	LetterDMCA  LetterType = "DMCA"
	LetterGDPR  LetterType = "GDPR"
	LetterOther LetterType = "Other"
)

// Category is a named bucket of links.
type Category struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Verified    bool   `json:"verified"`
	Disputed    bool   `json:"disputed"`
	Links       []Link `json:"links"`
}

// Link is one discovered or manually entered reference.
type Link struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	URL              string            `json:"url"`
	Excerpt          string            `json:"excerpt,omitempty"`
	PlatformLabel    string            `json:"platformLabel,omitempty"`
	Timestamp        *time.Time        `json:"timestamp,omitempty"`
	Sentiment        Sentiment         `json:"sentiment,omitempty"`
	RiskColor        RiskColor         `json:"riskColor,omitempty"`
	AnalysisText     string            `json:"analysisText,omitempty"`
	ArchivedEvidence *ArchivedEvidence `json:"archivedEvidence,omitempty"`
	KindOverride     Kind              `json:"kindOverride,omitempty"`

	// Legal is only set for links managed as legal cases.
	Legal *LegalExtension `json:"legal,omitempty"`
}

// ArchivedEvidence holds preserved copies of a link's content.
type ArchivedEvidence struct {
	ScreenshotURL string `json:"screenshotUrl,omitempty"`
	WaybackLink   string `json:"waybackLink,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// LegalExtension carries the fields that only apply when a link is a legal case.
type LegalExtension struct {
	CaseStatus          CaseStatus                 `json:"caseStatus,omitempty"`
	CourtName           string                     `json:"courtName,omitempty"`
	CaseIDOverride      string                     `json:"caseIdOverride,omitempty"`
	FilingDate          *time.Time                 `json:"filingDate,omitempty"`
	Documents           []Document                 `json:"documents,omitempty"`
	RemovalStatus       RemovalStatus              `json:"removalStatus,omitempty"`
	LastActionDate      *time.Time                 `json:"lastActionDate,omitempty"`
	AssociatedMentionID string                     `json:"associatedMentionId,omitempty"`
	GeneratedLetters    map[string]GeneratedLetter `json:"generatedLetters,omitempty"`
}

// Document is a named reference attached to a legal case.
type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// GeneratedLetter is an AI-drafted letter stored on a legal case.
type GeneratedLetter struct {
	Type        LetterType `json:"type"`
	Content     string     `json:"content"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// Ref is the back-reference a projection carries to its underlying link.
type Ref struct {
	CategoryID string `json:"categoryId"`
	LinkID     string `json:"linkId"`
}

// IsZero reports whether the reference points nowhere.
func (r Ref) IsZero() bool {
	return r.CategoryID == "" || r.LinkID == ""
}

// LinkPatch is a field-level update for a link. Nil fields are left untouched.
type LinkPatch struct {
	Title            *string
	URL              *string
	Excerpt          *string
	PlatformLabel    *string
	Timestamp        *time.Time
	Sentiment        *Sentiment
	RiskColor        *RiskColor
	AnalysisText     *string
	ArchivedEvidence *ArchivedEvidence
	KindOverride     *Kind
	Legal            *LegalExtension
}

// IsEmpty reports whether the patch changes nothing.
func (p LinkPatch) IsEmpty() bool {
	return p.Title == nil && p.URL == nil && p.Excerpt == nil && p.PlatformLabel == nil &&
		p.Timestamp == nil && p.Sentiment == nil && p.RiskColor == nil && p.AnalysisText == nil &&
		p.ArchivedEvidence == nil && p.KindOverride == nil && p.Legal == nil
}

// CategoryPatch is a field-level update for a category.
type CategoryPatch struct {
	Title       *string
	Description *string
	Verified    *bool
	Disputed    *bool
}

// Clone returns a deep copy of the link.
func (l Link) Clone() Link {
	c := l
	if l.Timestamp != nil {
		ts := *l.Timestamp
		c.Timestamp = &ts
	}
	if l.ArchivedEvidence != nil {
		ev := *l.ArchivedEvidence
		c.ArchivedEvidence = &ev
	}
	if l.Legal != nil {
		c.Legal = l.Legal.Clone()
	}
	return c
}

// Clone returns a deep copy of the extension.
func (e *LegalExtension) Clone() *LegalExtension {
	if e == nil {
		return nil
	}
	c := *e
	if e.FilingDate != nil {
		t := *e.FilingDate
		c.FilingDate = &t
	}
	if e.LastActionDate != nil {
		t := *e.LastActionDate
		c.LastActionDate = &t
	}
	if e.Documents != nil {
		c.Documents = append([]Document(nil), e.Documents...)
	}
	if e.GeneratedLetters != nil {
		c.GeneratedLetters = make(map[string]GeneratedLetter, len(e.GeneratedLetters))
		for k, v := range e.GeneratedLetters {
			c.GeneratedLetters[k] = v
		}
	}
	return &c
}

// Clone returns a deep copy of the category including its links.
func (c Category) Clone() Category {
	out := c
	out.Links = make([]Link, len(c.Links))
	for i, l := range c.Links {
		out.Links[i] = l.Clone()
	}
	return out
}

func cloneAll(categories []Category) []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = c.Clone()
	}
	return out
}
