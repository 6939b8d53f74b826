package collect

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/TobiSchelling/repwatch/internal/fetch"
)

const (
	maxPerFeed    = 20
	maxExcerptLen = 500
)

// Item is a candidate link found by a source.
type Item struct {
	URL       string
	Title     string
	Published *time.Time
	Excerpt   string
	Source    string
	Category  string
}

// FeedConfig is a single feed and the category its items are filed into.
type FeedConfig struct {
	URL      string
	Name     string
	Category string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	feeds  []FeedConfig
	client *http.Client
	logger *zap.Logger
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig, logger *zap.Logger) *FeedParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedParser{
		feeds:  feeds,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// ParseAll parses every configured feed and returns the items published on
// or after cutoff. A feed that fails is logged and skipped.
func (fp *FeedParser) ParseAll(ctx context.Context, cutoff time.Time) []Item {
	parser := gofeed.NewParser()
	parser.Client = fp.client

	var all []Item
	for _, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		items, err := parseFeed(ctx, parser, fc, name, cutoff)
		if err != nil {
			fp.logger.Warn("failed to parse feed", zap.String("url", fc.URL), zap.Error(err))
			continue
		}
		all = append(all, items...)
		fp.logger.Info("parsed feed", zap.String("feed", name), zap.Int("items", len(items)))
	}
	return all
}

func parseFeed(ctx context.Context, parser *gofeed.Parser, fc FeedConfig, name string, cutoff time.Time) ([]Item, error) {
	feed, err := parser.ParseURLWithContext(fc.URL, ctx)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, fi := range feed.Items {
		if len(items) >= maxPerFeed {
			break
		}
		item, ok := parseItem(fi, name)
		if !ok {
			continue
		}
		if item.Published != nil && item.Published.Before(cutoff) {
			continue
		}
		item.Category = fc.Category
		items = append(items, item)
	}
	return items, nil
}

func parseItem(fi *gofeed.Item, source string) (Item, bool) {
	itemURL := fi.Link
	if itemURL == "" {
		itemURL = fi.GUID
	}
	if itemURL == "" {
		return Item{}, false
	}
	title := strings.TrimSpace(fi.Title)
	if title == "" {
		return Item{}, false
	}

	item := Item{URL: itemURL, Title: title, Source: source}
	switch {
	case fi.PublishedParsed != nil:
		t := *fi.PublishedParsed
		item.Published = &t
	case fi.UpdatedParsed != nil:
		t := *fi.UpdatedParsed
		item.Published = &t
	}

	switch {
	case fi.Description != "":
		item.Excerpt = excerpt(fi.Description)
	case fi.Content != "":
		item.Excerpt = excerpt(fi.Content)
	}
	return item, true
}

func excerpt(html string) string {
	text := fetch.HTMLToText(html)
	r := []rune(text)
	if len(r) > maxExcerptLen {
		return strings.TrimSpace(string(r[:maxExcerptLen])) + "…"
	}
	return text
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds.", "news."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
