// Package collect discovers new links from RSS/Atom feeds and NewsAPI and
// files them into the encyclopedia.
package collect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/repwatch/internal/config"
	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound int
	Added      int
	Duplicates int
	Failed     int
	ByCategory map[string]int
}

// LinkStore is the part of the encyclopedia store the collector writes to.
type LinkStore interface {
	HasURL(rawURL string) bool
	AddLink(categoryID string, in encyclopedia.NewLink) (encyclopedia.Link, error)
}

// Collector gathers items from every configured source.
type Collector struct {
	store        LinkStore
	feedParser   *FeedParser
	newsClient   *NewsAPIClient
	newsQuery    string
	newsKeywords []string
	newsCategory string
	daysBack     int
	logger       *zap.Logger
	now          func() time.Time
}

// NewCollector creates a collector from the sources section of cfg.
func NewCollector(cfg *config.Config, store LinkStore, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		store:    store,
		daysBack: cfg.Sources.DaysBack,
		logger:   logger,
		now:      time.Now,
	}

	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name, Category: f.Category}
		}
		c.feedParser = NewFeedParser(feeds, logger)
	}

	apiCfg := cfg.Sources.NewsAPI
	if apiCfg.Enabled && apiCfg.Query != "" {
		c.newsClient = NewNewsAPIClient(apiCfg.APIKey(), logger)
		c.newsQuery = apiCfg.Query
		c.newsKeywords = apiCfg.Keywords
		c.newsCategory = apiCfg.Category
	}

	return c
}

// Gather returns candidate items from every source without touching the
// store.
func (c *Collector) Gather(ctx context.Context) []Item {
	cutoff := c.now().AddDate(0, 0, -c.daysBack)
	var items []Item

	if c.feedParser != nil {
		c.logger.Info("collecting from feeds")
		items = append(items, c.feedParser.ParseAll(ctx, cutoff)...)
	}

	if c.newsClient != nil && c.newsClient.IsConfigured() {
		c.logger.Info("collecting from NewsAPI")
		found, err := c.newsClient.SearchWithKeywords(ctx, c.newsQuery, c.newsKeywords, cutoff)
		if err != nil {
			c.logger.Warn("NewsAPI collection failed", zap.Error(err))
		}
		for _, it := range found {
			it.Category = c.newsCategory
			items = append(items, it)
		}
	}
	return items
}

// Collect gathers items and adds every one whose URL is not already in the
// store. Items whose category does not exist are counted as failed.
func (c *Collector) Collect(ctx context.Context) *Result {
	r := &Result{ByCategory: make(map[string]int)}

	items := c.Gather(ctx)
	r.TotalFound = len(items)

	for _, it := range items {
		if c.store.HasURL(it.URL) {
			r.Duplicates++
			continue
		}
		_, err := c.store.AddLink(it.Category, encyclopedia.NewLink{
			Title:         it.Title,
			URL:           it.URL,
			Excerpt:       it.Excerpt,
			PlatformLabel: it.Source,
			Timestamp:     it.Published,
		})
		if err != nil {
			r.Failed++
			c.logger.Warn("skipping collected item", zap.String("url", it.URL), zap.String("category", it.Category), zap.Error(err))
			continue
		}
		r.Added++
		r.ByCategory[it.Category]++
	}

	c.logger.Info("collection complete",
		zap.Int("found", r.TotalFound),
		zap.Int("added", r.Added),
		zap.Int("duplicates", r.Duplicates),
		zap.Int("failed", r.Failed))
	return r
}

// SourceCount returns how many sources a collection run would query.
func (c *Collector) SourceCount() int {
	n := 0
	if c.feedParser != nil {
		n += len(c.feedParser.feeds)
	}
	if c.newsClient != nil && c.newsClient.IsConfigured() {
		n += 1 + len(c.newsKeywords)
	}
	return n
}
