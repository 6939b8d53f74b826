// Package mention projects encyclopedia links into the mentions feed and
// writes feed edits back onto the underlying links.
package mention

import (
	"sort"
	"time"

	"github.com/TobiSchelling/repwatch/internal/classify"
	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

// NoExcerpt is shown for links without an excerpt.
const NoExcerpt = "No excerpt available."

// Mention is the feed view of a link.
type Mention struct {
	ID               string                         `json:"id"`
	Kind             encyclopedia.Kind              `json:"kind"`
	Title            string                         `json:"title"`
	URL              string                         `json:"url"`
	Excerpt          string                         `json:"excerpt"`
	PlatformLabel    string                         `json:"platformLabel"`
	Timestamp        time.Time                      `json:"timestamp"`
	Sentiment        encyclopedia.Sentiment         `json:"sentiment,omitempty"`
	RiskColor        encyclopedia.RiskColor         `json:"riskColor,omitempty"`
	AnalysisText     string                         `json:"analysisText,omitempty"`
	ArchivedEvidence *encyclopedia.ArchivedEvidence `json:"archivedEvidence,omitempty"`

	OriginalCategoryID string `json:"originalCategoryId"`
	OriginalLinkID     string `json:"originalLinkId"`

	Defaults Defaults `json:"defaults"`
}

// Defaults holds the values filled in at read time. A field that still
// equals its recorded default is not written back.
type Defaults struct {
	PlatformLabel string     `json:"platformLabel,omitempty"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
}

// Ref returns the mention's back-reference.
func (m Mention) Ref() encyclopedia.Ref {
	return encyclopedia.Ref{CategoryID: m.OriginalCategoryID, LinkID: m.OriginalLinkID}
}

// ResolveDisplayTimestamp returns the link's timestamp, or now when it has
// none. The substitute is for display only and never persisted.
func ResolveDisplayTimestamp(link encyclopedia.Link, now time.Time) (time.Time, bool) {
	if link.Timestamp != nil && !link.Timestamp.IsZero() {
		return *link.Timestamp, false
	}
	return now, true
}

// FromLink builds the mention view of link.
func FromLink(link encyclopedia.Link, category encyclopedia.Category, now time.Time) Mention {
	m := Mention{
		ID:                 link.ID,
		Kind:               classify.Classify(link, category),
		Title:              link.Title,
		URL:                link.URL,
		Excerpt:            link.Excerpt,
		PlatformLabel:      link.PlatformLabel,
		Sentiment:          link.Sentiment,
		RiskColor:          link.RiskColor,
		AnalysisText:       link.AnalysisText,
		OriginalCategoryID: category.ID,
		OriginalLinkID:     link.ID,
	}
	if link.ArchivedEvidence != nil {
		ev := *link.ArchivedEvidence
		m.ArchivedEvidence = &ev
	}
	if m.PlatformLabel == "" {
		m.PlatformLabel = category.Title
		m.Defaults.PlatformLabel = category.Title
	}
	if m.Excerpt == "" {
		m.Excerpt = NoExcerpt
		m.Defaults.Excerpt = NoExcerpt
	}
	ts, defaulted := ResolveDisplayTimestamp(link, now)
	m.Timestamp = ts
	if defaulted {
		m.Defaults.Timestamp = &ts
	}
	return m
}

// Project returns the mentions for every link in an allow-listed category,
// most recent first. Ties keep store order.
func Project(categories []encyclopedia.Category, allow []string, now time.Time) []Mention {
	allowed := make(map[string]bool, len(allow))
	for _, id := range allow {
		allowed[id] = true
	}

	out := []Mention{}
	for _, c := range categories {
		if !allowed[c.ID] {
			continue
		}
		for _, l := range c.Links {
			out = append(out, FromLink(l, c, now))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// ToLinkPatch maps a mention back to a link update. Fields still holding
// their read-time default are left out.
func ToLinkPatch(m Mention) encyclopedia.LinkPatch {
	title := m.Title
	u := m.URL
	analysis := m.AnalysisText
	sentiment := m.Sentiment
	risk := m.RiskColor
	p := encyclopedia.LinkPatch{
		Title:        &title,
		URL:          &u,
		Sentiment:    &sentiment,
		RiskColor:    &risk,
		AnalysisText: &analysis,
	}

	if m.Defaults.Excerpt == "" || m.Excerpt != m.Defaults.Excerpt {
		excerpt := m.Excerpt
		p.Excerpt = &excerpt
	}
	if m.Defaults.PlatformLabel == "" || m.PlatformLabel != m.Defaults.PlatformLabel {
		platform := m.PlatformLabel
		p.PlatformLabel = &platform
	}
	if m.Defaults.Timestamp == nil || !m.Timestamp.Equal(*m.Defaults.Timestamp) {
		ts := m.Timestamp
		p.Timestamp = &ts
	}
	if m.ArchivedEvidence != nil {
		ev := *m.ArchivedEvidence
		p.ArchivedEvidence = &ev
	}
	return p
}

// LinkUpdater applies link patches by back-reference.
type LinkUpdater interface {
	UpdateLink(ref encyclopedia.Ref, p encyclopedia.LinkPatch) (encyclopedia.Link, bool, error)
}

// ApplyEdit writes an edited mention back to its link. A mention without a
// back-reference, or whose link no longer exists, is ignored.
func ApplyEdit(store LinkUpdater, m Mention) (bool, error) {
	ref := m.Ref()
	if ref.IsZero() {
		return false, nil
	}
	_, ok, err := store.UpdateLink(ref, ToLinkPatch(m))
	return ok, err
}
