package mention

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func ts(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func newsCategory(links ...encyclopedia.Link) encyclopedia.Category {
	return encyclopedia.Category{ID: "enc-news", Title: "News Articles", Links: links}
}

func TestFromLinkExample(t *testing.T) {
	link := encyclopedia.Link{ID: "link-1", Title: "Forbes Feature", URL: "https://forbes.example/x", Timestamp: ts(2024, 1, 10), Excerpt: "..."}
	cat := newsCategory(link)

	m := FromLink(link, cat, now)

	assert.Equal(t, "link-1", m.ID)
	assert.Equal(t, encyclopedia.KindNews, m.Kind)
	assert.Equal(t, "News Articles", m.PlatformLabel)
	assert.True(t, m.Timestamp.Equal(*ts(2024, 1, 10)))
	assert.Equal(t, "enc-news", m.OriginalCategoryID)
	assert.Equal(t, "link-1", m.OriginalLinkID)
	assert.Equal(t, "...", m.Excerpt)
}

func TestFromLinkDefaults(t *testing.T) {
	link := encyclopedia.Link{ID: "l", URL: "https://a.example"}
	m := FromLink(link, newsCategory(link), now)

	assert.Equal(t, NoExcerpt, m.Excerpt)
	assert.Equal(t, "News Articles", m.PlatformLabel)
	assert.True(t, m.Timestamp.Equal(now))
	require.NotNil(t, m.Defaults.Timestamp)
	assert.Equal(t, NoExcerpt, m.Defaults.Excerpt)
}

func TestResolveDisplayTimestamp(t *testing.T) {
	got, defaulted := ResolveDisplayTimestamp(encyclopedia.Link{}, now)
	assert.True(t, defaulted)
	assert.True(t, got.Equal(now))

	got, defaulted = ResolveDisplayTimestamp(encyclopedia.Link{Timestamp: ts(2023, 3, 1)}, now)
	assert.False(t, defaulted)
	assert.True(t, got.Equal(*ts(2023, 3, 1)))
}

func TestProjectFiltersAndSorts(t *testing.T) {
	categories := []encyclopedia.Category{
		newsCategory(
			encyclopedia.Link{ID: "old", URL: "https://a.example", Timestamp: ts(2024, 1, 1)},
			encyclopedia.Link{ID: "new", URL: "https://b.example", Timestamp: ts(2024, 5, 1)},
		),
		{ID: "enc-blogs", Title: "Blog Posts", Links: []encyclopedia.Link{
			{ID: "tie-a", URL: "https://c.example", Timestamp: ts(2024, 3, 1)},
			{ID: "tie-b", URL: "https://d.example", Timestamp: ts(2024, 3, 1)},
		}},
		{ID: "enc-legal-public", Title: "Legal", Links: []encyclopedia.Link{
			{ID: "legal", URL: "https://e.example", Timestamp: ts(2024, 6, 1)},
		}},
	}

	got := Project(categories, []string{"enc-news", "enc-blogs"}, now)

	ids := make([]string, len(got))
	for i, m := range got {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"new", "tie-a", "tie-b", "old"}, ids)
}

func TestProjectEmptyAllowList(t *testing.T) {
	got := Project(encyclopedia.Seed(now), nil, now)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRoundTripIsNoop(t *testing.T) {
	links := []encyclopedia.Link{
		{
			ID: "full", Title: "T", URL: "https://a.example/x", Excerpt: "E", PlatformLabel: "Forbes",
			Timestamp: ts(2024, 2, 2), Sentiment: encyclopedia.SentimentNegative, RiskColor: encyclopedia.RiskRed,
			AnalysisText: "bad", ArchivedEvidence: &encyclopedia.ArchivedEvidence{Notes: "n"},
			KindOverride: encyclopedia.KindSocial,
		},
		{ID: "bare", URL: "https://b.example"},
		{ID: "literal", URL: "https://c.example", Excerpt: NoExcerpt, PlatformLabel: "News Articles"},
	}
	for _, link := range links {
		cat := newsCategory(link)
		m := FromLink(link, cat, now)

		got := link.Clone()
		got.Apply(ToLinkPatch(m))

		assert.Equal(t, link, got, "link %s", link.ID)
	}
}

func TestRoundTripSurvivesJSON(t *testing.T) {
	link := encyclopedia.Link{ID: "bare", URL: "https://b.example"}
	m := FromLink(link, newsCategory(link), now)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	var decoded Mention
	require.NoError(t, json.Unmarshal(data, &decoded))

	got := link.Clone()
	got.Apply(ToLinkPatch(decoded))
	assert.Equal(t, link, got)
}

func TestToLinkPatchWritesEditedDefaults(t *testing.T) {
	link := encyclopedia.Link{ID: "bare", URL: "https://b.example"}
	m := FromLink(link, newsCategory(link), now)
	m.Excerpt = "Written by hand"

	p := ToLinkPatch(m)

	require.NotNil(t, p.Excerpt)
	assert.Equal(t, "Written by hand", *p.Excerpt)
	assert.Nil(t, p.PlatformLabel)
	assert.Nil(t, p.Timestamp)
}

func TestApplyEdit(t *testing.T) {
	store := encyclopedia.NewStore(encyclopedia.NewMemorySlot(), nil)
	store.Load()
	link, cat, ok := store.FindLink(encyclopedia.Ref{CategoryID: encyclopedia.CategoryNews, LinkID: "link-news-1"})
	require.True(t, ok)

	m := FromLink(link, cat, now)
	m.RiskColor = encyclopedia.RiskGreen
	m.Title = "Edited"

	applied, err := ApplyEdit(store, m)
	require.NoError(t, err)
	assert.True(t, applied)

	got, _, _ := store.FindLink(m.Ref())
	assert.Equal(t, "Edited", got.Title)
	assert.Equal(t, encyclopedia.RiskGreen, got.RiskColor)
	assert.Equal(t, link.Excerpt, got.Excerpt)
}

func TestApplyEditWithoutOriginIsNoop(t *testing.T) {
	store := encyclopedia.NewStore(encyclopedia.NewMemorySlot(), nil)
	store.Load()

	applied, err := ApplyEdit(store, Mention{ID: "x", Title: "orphan"})
	assert.NoError(t, err)
	assert.False(t, applied)

	applied, err = ApplyEdit(store, Mention{OriginalCategoryID: encyclopedia.CategoryNews, OriginalLinkID: "gone"})
	assert.NoError(t, err)
	assert.False(t, applied)
}
