package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/repwatch/internal/config"
	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Example News</title>
<item>
  <title>Jane Example opens new office</title>
  <link>https://news.example/office</link>
  <description>&lt;p&gt;Jane &lt;b&gt;Example&lt;/b&gt; opened an office.&lt;/p&gt;</description>
  <pubDate>Thu, 13 Jun 2024 09:00:00 GMT</pubDate>
</item>
<item>
  <title>Old story</title>
  <link>https://news.example/old</link>
  <pubDate>Mon, 01 Jan 2024 09:00:00 GMT</pubDate>
</item>
<item>
  <title>Undated piece</title>
  <link>https://news.example/undated</link>
</item>
<item>
  <title></title>
  <link>https://news.example/untitled</link>
</item>
<item>
  <title>Already known</title>
  <link>https://known.example/</link>
</item>
</channel></rss>`

func newStore(t *testing.T) *encyclopedia.Store {
	t.Helper()
	s := encyclopedia.NewStore(encyclopedia.NewMemorySlot(), nil)
	s.Load()
	_, err := s.AddLink(encyclopedia.CategoryBlogs, encyclopedia.NewLink{Title: "Known", URL: "https://known.example/"})
	require.NoError(t, err)
	return s
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rss)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCollectFeeds(t *testing.T) {
	srv := feedServer(t)
	store := newStore(t)

	cfg := config.Default()
	cfg.Sources.Feeds = []config.Feed{{URL: srv.URL, Name: "Example News", Category: encyclopedia.CategoryNews}}
	cfg.Sources.NewsAPI.Enabled = false

	c := NewCollector(cfg, store, nil)
	c.now = func() time.Time { return testNow }

	r := c.Collect(context.Background())

	assert.Equal(t, 3, r.TotalFound)
	assert.Equal(t, 2, r.Added)
	assert.Equal(t, 1, r.Duplicates)
	assert.Equal(t, 2, r.ByCategory[encyclopedia.CategoryNews])

	assert.True(t, store.HasURL("https://news.example/office"))
	assert.True(t, store.HasURL("https://news.example/undated"))
	assert.False(t, store.HasURL("https://news.example/old"))

	cat, ok := store.Category(encyclopedia.CategoryNews)
	require.True(t, ok)
	var office encyclopedia.Link
	for _, l := range cat.Links {
		if l.URL == "https://news.example/office" {
			office = l
		}
	}
	assert.Equal(t, "Jane Example opens new office", office.Title)
	assert.Equal(t, "Jane Example opened an office.", office.Excerpt)
	assert.Equal(t, "Example News", office.PlatformLabel)
	require.NotNil(t, office.Timestamp)
	assert.Equal(t, 13, office.Timestamp.Day())

	again := c.Collect(context.Background())
	assert.Equal(t, 0, again.Added)
	assert.Equal(t, 3, again.Duplicates)
}

func TestCollectUnknownCategoryCountsFailed(t *testing.T) {
	srv := feedServer(t)
	store := newStore(t)

	cfg := config.Default()
	cfg.Sources.Feeds = []config.Feed{{URL: srv.URL, Category: "enc-missing"}}

	c := NewCollector(cfg, store, nil)
	c.now = func() time.Time { return testNow }

	r := c.Collect(context.Background())
	assert.Equal(t, 0, r.Added)
	assert.Equal(t, 2, r.Failed)
}

func TestCollectSkipsBrokenFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Sources.Feeds = []config.Feed{{URL: srv.URL, Category: encyclopedia.CategoryNews}}

	r := NewCollector(cfg, newStore(t), nil).Collect(context.Background())
	assert.Equal(t, 0, r.TotalFound)
}

func TestNewsAPISearch(t *testing.T) {
	var gotKey, gotQuery []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = append(gotKey, r.Header.Get("X-Api-Key"))
		gotQuery = append(gotQuery, r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"status":"ok","articles":[
			{"url":"https://paper.example/a","title":" Profile piece ","publishedAt":"2024-06-10T08:00:00Z","description":"About Jane","source":{"name":"Paper"}},
			{"url":"https://removed.com","title":"[Removed]"},
			{"url":"","title":"No URL"}
		]}`)
	}))
	defer srv.Close()

	c := NewNewsAPIClient("secret", nil)
	c.baseURL = srv.URL

	items, err := c.SearchWithKeywords(context.Background(), `"Jane Example"`, []string{"lawsuit"}, testNow.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "Profile piece", items[0].Title)
	assert.Equal(t, "Paper", items[0].Source)
	assert.Equal(t, "About Jane", items[0].Excerpt)
	require.NotNil(t, items[0].Published)
	assert.Equal(t, []string{"secret", "secret"}, gotKey)
	assert.Equal(t, []string{`"Jane Example"`, `"Jane Example" lawsuit`}, gotQuery)
}

func TestNewsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`)
	}))
	defer srv.Close()

	c := NewNewsAPIClient("bad", nil)
	c.baseURL = srv.URL

	_, err := c.Search(context.Background(), "x", testNow, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKeyInvalid")

	_, err = NewNewsAPIClient("", nil).Search(context.Background(), "x", testNow, 10)
	assert.Error(t, err)
}

func TestExtractSourceName(t *testing.T) {
	tests := map[string]string{
		"https://www.theverge.com/rss/index.xml": "Theverge",
		"https://blog.golang.org/feed.atom":      "Golang",
		"https://localhost/feed":                 "Localhost",
	}
	for in, want := range tests {
		assert.Equal(t, want, extractSourceName(in), in)
	}
}
