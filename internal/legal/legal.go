// Package legal projects the links of the legal filings category into case
// records and writes case edits back onto those links.
package legal

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

const (
	// NoSummary is shown for cases whose link has no excerpt.
	NoSummary = "No summary available."
	// NoCourt is shown when neither a court nor a platform is known.
	NoCourt = "N/A"

	caseIDPrefix = "case id:"
	titleIDRunes = 30
)

// Case is the legal view of a link.
type Case struct {
	ID                  string                                  `json:"id"`
	Title               string                                  `json:"title"`
	CaseID              string                                  `json:"caseId"`
	Court               string                                  `json:"court"`
	Status              encyclopedia.CaseStatus                 `json:"status"`
	RiskColor           encyclopedia.RiskColor                  `json:"riskColor,omitempty"`
	FilingDate          time.Time                               `json:"filingDate"`
	LastActionDate      time.Time                               `json:"lastActionDate"`
	Summary             string                                  `json:"summary"`
	Documents           []encyclopedia.Document                 `json:"documents"`
	RemovalStatus       encyclopedia.RemovalStatus              `json:"removalStatus"`
	AssociatedMentionID string                                  `json:"associatedMentionId,omitempty"`
	GeneratedLetters    map[string]encyclopedia.GeneratedLetter `json:"generatedLetters,omitempty"`

	OriginalCategoryID string `json:"originalCategoryId"`
	OriginalLinkID     string `json:"originalLinkId"`

	Defaults Defaults `json:"defaults"`
}

// Defaults holds the values filled in at read time. A field that still
// equals its recorded default is not written back.
type Defaults struct {
	CaseID         string                     `json:"caseId,omitempty"`
	Court          string                     `json:"court,omitempty"`
	Status         encyclopedia.CaseStatus    `json:"status,omitempty"`
	FilingDate     *time.Time                 `json:"filingDate,omitempty"`
	LastActionDate *time.Time                 `json:"lastActionDate,omitempty"`
	Summary        string                     `json:"summary,omitempty"`
	Documents      []encyclopedia.Document    `json:"documents,omitempty"`
	RemovalStatus  encyclopedia.RemovalStatus `json:"removalStatus,omitempty"`
}

// Ref returns the case's back-reference.
func (c Case) Ref() encyclopedia.Ref {
	return encyclopedia.Ref{CategoryID: c.OriginalCategoryID, LinkID: c.OriginalLinkID}
}

// InferCaseID derives a case identifier from a link title. A title of the
// form "Case ID: <id> ..." yields <id>; any other title yields its first 30
// characters with whitespace replaced by underscores. An empty result falls
// back to "case-<linkID>".
func InferCaseID(title, linkID string) string {
	fallback := "case-" + linkID
	if strings.HasPrefix(strings.ToLower(title), caseIDPrefix) {
		parts := strings.Split(title, ":")
		if id := strings.Split(strings.TrimSpace(parts[1]), " ")[0]; id != "" {
			return id
		}
		return fallback
	}

	runes := []rune(title)
	if len(runes) > titleIDRunes {
		runes = runes[:titleIDRunes]
	}
	id := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, string(runes))
	if id == "" {
		return fallback
	}
	return id
}

// FromLink builds the case view of link.
func FromLink(link encyclopedia.Link, category encyclopedia.Category, now time.Time) Case {
	ext := link.Legal
	if ext == nil {
		ext = &encyclopedia.LegalExtension{}
	}

	c := Case{
		ID:                  link.ID,
		Title:               link.Title,
		CaseID:              ext.CaseIDOverride,
		Court:               ext.CourtName,
		Status:              ext.CaseStatus,
		RiskColor:           link.RiskColor,
		Summary:             link.Excerpt,
		Documents:           slices.Clone(ext.Documents),
		RemovalStatus:       ext.RemovalStatus,
		AssociatedMentionID: ext.AssociatedMentionID,
		OriginalCategoryID:  category.ID,
		OriginalLinkID:      link.ID,
	}
	if len(ext.GeneratedLetters) > 0 {
		c.GeneratedLetters = make(map[string]encyclopedia.GeneratedLetter, len(ext.GeneratedLetters))
		for k, v := range ext.GeneratedLetters {
			c.GeneratedLetters[k] = v
		}
	}

	if c.CaseID == "" {
		c.CaseID = InferCaseID(link.Title, link.ID)
		c.Defaults.CaseID = c.CaseID
	}
	if c.Court == "" {
		c.Court = link.PlatformLabel
		if c.Court == "" {
			c.Court = NoCourt
		}
		c.Defaults.Court = c.Court
	}
	if c.Status == "" {
		c.Status = encyclopedia.CasePotential
		c.Defaults.Status = c.Status
	}

	switch {
	case ext.FilingDate != nil:
		c.FilingDate = *ext.FilingDate
	case link.Timestamp != nil:
		c.FilingDate = *link.Timestamp
		fd := c.FilingDate
		c.Defaults.FilingDate = &fd
	default:
		c.FilingDate = now
		fd := now
		c.Defaults.FilingDate = &fd
	}
	if ext.LastActionDate != nil {
		c.LastActionDate = *ext.LastActionDate
	} else {
		c.LastActionDate = c.FilingDate
		la := c.FilingDate
		c.Defaults.LastActionDate = &la
	}

	if c.Summary == "" {
		c.Summary = NoSummary
		c.Defaults.Summary = NoSummary
	}
	if len(c.Documents) == 0 {
		c.Documents = []encyclopedia.Document{}
		if link.URL != "" {
			c.Documents = []encyclopedia.Document{{Name: link.Title, URL: link.URL}}
			c.Defaults.Documents = slices.Clone(c.Documents)
		}
	}
	if c.RemovalStatus == "" {
		c.RemovalStatus = encyclopedia.RemovalNotApplicable
		c.Defaults.RemovalStatus = c.RemovalStatus
	}
	return c
}

// Project returns the cases for the links of the legal category, most
// recently filed first. An unknown category yields an empty list.
func Project(categories []encyclopedia.Category, legalCategoryID string, now time.Time) []Case {
	out := []Case{}
	for _, c := range categories {
		if c.ID != legalCategoryID {
			continue
		}
		for _, l := range c.Links {
			out = append(out, FromLink(l, c, now))
		}
		break
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FilingDate.After(out[j].FilingDate)
	})
	return out
}

// ToLinkPatch maps a case back to a link update. Fields still holding their
// read-time default are left out. When an inferred case id has been replaced
// the link title is rebuilt as "<caseId> - <court>"; otherwise the title is
// left alone.
func ToLinkPatch(c Case) encyclopedia.LinkPatch {
	var p encyclopedia.LinkPatch

	risk := c.RiskColor
	p.RiskColor = &risk

	if c.Defaults.Summary == "" || c.Summary != c.Defaults.Summary {
		summary := c.Summary
		p.Excerpt = &summary
	}

	ext := encyclopedia.LegalExtension{
		AssociatedMentionID: c.AssociatedMentionID,
	}
	if c.Defaults.CaseID == "" || c.CaseID != c.Defaults.CaseID {
		ext.CaseIDOverride = c.CaseID
	}
	if c.Defaults.CaseID != "" && c.CaseID != c.Defaults.CaseID {
		title := fmt.Sprintf("%s - %s", c.CaseID, c.Court)
		p.Title = &title
	}
	switch {
	case c.Defaults.Court == "":
		ext.CourtName = c.Court
	case c.Court != c.Defaults.Court && c.Court != NoCourt:
		ext.CourtName = c.Court
	}
	if c.Defaults.Status == "" || c.Status != c.Defaults.Status {
		ext.CaseStatus = c.Status
	}
	if c.Defaults.FilingDate == nil || !c.FilingDate.Equal(*c.Defaults.FilingDate) {
		fd := c.FilingDate
		ext.FilingDate = &fd
	}
	if c.Defaults.LastActionDate == nil || !c.LastActionDate.Equal(*c.Defaults.LastActionDate) {
		la := c.LastActionDate
		ext.LastActionDate = &la
	}
	if len(c.Documents) > 0 && !slices.Equal(c.Documents, c.Defaults.Documents) {
		ext.Documents = slices.Clone(c.Documents)
	}
	if c.Defaults.RemovalStatus == "" || c.RemovalStatus != c.Defaults.RemovalStatus {
		ext.RemovalStatus = c.RemovalStatus
	}
	if len(c.GeneratedLetters) > 0 {
		ext.GeneratedLetters = make(map[string]encyclopedia.GeneratedLetter, len(c.GeneratedLetters))
		for k, v := range c.GeneratedLetters {
			ext.GeneratedLetters[k] = v
		}
	}

	if !isEmpty(ext) {
		p.Legal = &ext
	}
	return p
}

func isEmpty(e encyclopedia.LegalExtension) bool {
	return e.CaseStatus == "" && e.CourtName == "" && e.CaseIDOverride == "" &&
		e.FilingDate == nil && len(e.Documents) == 0 && e.RemovalStatus == "" &&
		e.LastActionDate == nil && e.AssociatedMentionID == "" && len(e.GeneratedLetters) == 0
}

// Store is the subset of the link store the write-back paths need.
type Store interface {
	FindLink(ref encyclopedia.Ref) (encyclopedia.Link, encyclopedia.Category, bool)
	UpdateLink(ref encyclopedia.Ref, p encyclopedia.LinkPatch) (encyclopedia.Link, bool, error)
}

// ApplyEdit writes an edited case back to its link. A case without a
// back-reference, or whose link no longer exists, is ignored. An empty
// document list clears documents stored on the link.
func ApplyEdit(store Store, c Case) (bool, error) {
	ref := c.Ref()
	if ref.IsZero() {
		return false, nil
	}
	p := ToLinkPatch(c)
	if p.Legal == nil && len(c.Documents) == 0 {
		// Nothing else is stored, so an empty extension only drops the documents.
		if link, _, ok := store.FindLink(ref); ok && link.Legal != nil && len(link.Legal.Documents) > 0 {
			p.Legal = &encyclopedia.LegalExtension{}
		}
	}
	_, ok, err := store.UpdateLink(ref, p)
	return ok, err
}

// LetterKey returns the storage key for a letter generated at t.
func LetterKey(t encyclopedia.LetterType, at time.Time) string {
	return fmt.Sprintf("%s_%d", strings.ToLower(string(t)), at.UnixMilli())
}

// AttachLetter stores a generated letter on the case's link and stamps the
// last action date. It reports false when the link no longer resolves.
func AttachLetter(store Store, ref encyclopedia.Ref, letterType encyclopedia.LetterType, content string, now time.Time) (string, bool, error) {
	if ref.IsZero() {
		return "", false, nil
	}
	link, _, ok := store.FindLink(ref)
	if !ok {
		return "", false, nil
	}

	ext := link.Legal.Clone()
	if ext == nil {
		ext = &encyclopedia.LegalExtension{}
	}
	if ext.GeneratedLetters == nil {
		ext.GeneratedLetters = make(map[string]encyclopedia.GeneratedLetter)
	}
	key := LetterKey(letterType, now)
	ext.GeneratedLetters[key] = encyclopedia.GeneratedLetter{Type: letterType, Content: content, GeneratedAt: now}
	last := now
	ext.LastActionDate = &last

	_, ok, err := store.UpdateLink(ref, encyclopedia.LinkPatch{Legal: ext})
	if err != nil || !ok {
		return "", ok, err
	}
	return key, true, nil
}
