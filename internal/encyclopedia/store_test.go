package encyclopedia

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *MemorySlot) {
	t.Helper()
	slot := NewMemorySlot()
	s := NewStore(slot, nil)
	s.now = func() time.Time { return testNow }
	s.Load()
	return s, slot
}

func TestLoadSeedsEmptySlot(t *testing.T) {
	s, slot := newTestStore(t)

	cats := s.Categories()
	require.NotEmpty(t, cats)
	_, ok := s.Category(CategoryNews)
	assert.True(t, ok)

	blob, found, _ := slot.Get(StorageKey)
	require.True(t, found, "seed should be written to the slot")
	var stored []Category
	require.NoError(t, json.Unmarshal([]byte(blob), &stored))
	assert.Len(t, stored, len(cats))
}

func TestLoadFallsBackOnUnparsableBlob(t *testing.T) {
	slot := NewMemorySlot()
	require.NoError(t, slot.Set(StorageKey, "{not json"))

	s := NewStore(slot, nil)
	seeded := s.Load()

	assert.True(t, seeded)
	_, ok := s.Category(CategoryLegal)
	assert.True(t, ok)
}

func TestLoadReadsStoredGraph(t *testing.T) {
	slot := NewMemorySlot()
	blob := `[{"id":"c1","title":"Mine","description":"","verified":false,"disputed":false,"links":null}]`
	require.NoError(t, slot.Set(StorageKey, blob))

	s := NewStore(slot, nil)
	seeded := s.Load()

	assert.False(t, seeded)
	cats := s.Categories()
	require.Len(t, cats, 1)
	assert.Equal(t, "Mine", cats[0].Title)
	assert.NotNil(t, cats[0].Links)
}

func TestAddLinkPersistsAndReloads(t *testing.T) {
	s, slot := newTestStore(t)
	writes := slot.Writes()

	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	l, err := s.AddLink(CategoryNews, NewLink{Title: "Feature", URL: "https://forbes.example/x", Timestamp: &ts})
	require.NoError(t, err)
	assert.Contains(t, l.ID, "link-")
	assert.Equal(t, writes+1, slot.Writes())

	reloaded := NewStore(slot, nil)
	require.False(t, reloaded.Load())
	got, cat, ok := reloaded.FindLink(Ref{CategoryID: CategoryNews, LinkID: l.ID})
	require.True(t, ok)
	assert.Equal(t, CategoryNews, cat.ID)
	assert.Equal(t, "Feature", got.Title)
	assert.True(t, got.Timestamp.Equal(ts))
}

func TestAddLinkValidation(t *testing.T) {
	s, slot := newTestStore(t)
	writes := slot.Writes()

	_, err := s.AddLink(CategoryNews, NewLink{Title: "No URL"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = s.AddLink(CategoryNews, NewLink{Title: "Bad", URL: "not a url"})
	assert.True(t, IsValidation(err))

	_, err = s.AddLink(CategoryNews, NewLink{URL: "https://a.example", KindOverride: "bogus"})
	assert.True(t, IsValidation(err))

	assert.Equal(t, writes, slot.Writes(), "failed validation must not persist")
}

func TestAddLinkUnknownCategory(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddLink("missing", NewLink{URL: "https://a.example"})
	assert.True(t, errors.Is(err, ErrCategoryNotFound))
}

func TestLinkIDsUniqueAcrossStore(t *testing.T) {
	s, _ := newTestStore(t)
	seen := map[string]bool{}
	for _, c := range s.Categories() {
		for _, l := range c.Links {
			seen[l.ID] = true
		}
	}
	for i := 0; i < 20; i++ {
		l, err := s.AddLink(CategoryBlogs, NewLink{URL: "https://a.example"})
		require.NoError(t, err)
		assert.False(t, seen[l.ID], "duplicate id %s", l.ID)
		seen[l.ID] = true
	}
}

func TestUpdateLinkMergesFields(t *testing.T) {
	s, _ := newTestStore(t)
	ref := Ref{CategoryID: CategoryNews, LinkID: "link-news-1"}

	risk := RiskRed
	analysis := "Looks bad"
	updated, ok, err := s.UpdateLink(ref, LinkPatch{RiskColor: &risk, AnalysisText: &analysis})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, RiskRed, updated.RiskColor)
	assert.Equal(t, "Forbes", updated.PlatformLabel, "untouched fields survive")
}

func TestUpdateLinkMissingTargetIsNoop(t *testing.T) {
	s, slot := newTestStore(t)
	writes := slot.Writes()
	title := "x"

	_, ok, err := s.UpdateLink(Ref{CategoryID: CategoryNews, LinkID: "gone"}, LinkPatch{Title: &title})
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.UpdateLink(Ref{}, LinkPatch{Title: &title})
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, writes, slot.Writes())
}

func TestUpdateLinkRejectsBadURL(t *testing.T) {
	s, _ := newTestStore(t)
	bad := "::nope"
	_, _, err := s.UpdateLink(Ref{CategoryID: CategoryNews, LinkID: "link-news-1"}, LinkPatch{URL: &bad})
	assert.True(t, IsValidation(err))
}

func TestUpdateLinkKeepsUnchangedLegacyURL(t *testing.T) {
	slot := NewMemorySlot()
	blob := `[{"id":"news","title":"News","description":"","verified":false,"disputed":false,"links":[{"id":"l1","title":"Old","url":"forbes.com/x"}]}]`
	require.NoError(t, slot.Set(StorageKey, blob))
	s := NewStore(slot, nil)
	s.Load()
	ref := Ref{CategoryID: "news", LinkID: "l1"}

	stored := "forbes.com/x"
	excerpt := "Edited excerpt"
	updated, ok, err := s.UpdateLink(ref, LinkPatch{URL: &stored, Excerpt: &excerpt})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Edited excerpt", updated.Excerpt)
	assert.Equal(t, "forbes.com/x", updated.URL)

	bad := "::nope"
	_, _, err = s.UpdateLink(ref, LinkPatch{URL: &bad})
	assert.True(t, IsValidation(err), "a changed URL is still validated")
}

func TestCategoryLifecycle(t *testing.T) {
	s, _ := newTestStore(t)

	c, err := s.AddCategory(NewCategory{Title: "Press Releases"})
	require.NoError(t, err)
	assert.Contains(t, c.ID, "enc-")

	_, err = s.AddCategory(NewCategory{ID: c.ID, Title: "Again"})
	assert.True(t, errors.Is(err, ErrDuplicateCategory))

	_, err = s.AddCategory(NewCategory{})
	assert.True(t, IsValidation(err))

	verified := true
	updated, err := s.UpdateCategory(c.ID, CategoryPatch{Verified: &verified})
	require.NoError(t, err)
	assert.True(t, updated.Verified)

	_, err = s.UpdateCategory("missing", CategoryPatch{Verified: &verified})
	assert.True(t, errors.Is(err, ErrCategoryNotFound))
}

func TestSubscribersSeeMutations(t *testing.T) {
	s, _ := newTestStore(t)

	var events []Event
	unsubscribe := s.Subscribe(func(e Event) { events = append(events, e) })

	l, err := s.AddLink(CategoryNews, NewLink{URL: "https://a.example"})
	require.NoError(t, err)
	title := "renamed"
	_, _, err = s.UpdateLink(Ref{CategoryID: CategoryNews, LinkID: l.ID}, LinkPatch{Title: &title})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, EventLinkAdded, events[0].Type)
	assert.Equal(t, EventLinkUpdated, events[1].Type)
	assert.Equal(t, l.ID, events[1].LinkID)

	unsubscribe()
	_, _ = s.AddLink(CategoryNews, NewLink{URL: "https://b.example"})
	assert.Len(t, events, 2)
}

func TestCategoriesReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)
	cats := s.Categories()
	cats[0].Title = "mutated"
	cats[0].Links[0].Title = "mutated"

	fresh := s.Categories()
	assert.NotEqual(t, "mutated", fresh[0].Title)
	assert.NotEqual(t, "mutated", fresh[0].Links[0].Title)
}
