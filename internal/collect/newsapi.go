package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPIClient searches newsapi.org.
type NewsAPIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewNewsAPIClient creates a new NewsAPI client.
func NewNewsAPIClient(apiKey string, logger *zap.Logger) *NewsAPIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsAPIClient{
		apiKey:  apiKey,
		baseURL: newsAPIBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// IsConfigured returns whether the API key is available.
func (c *NewsAPIClient) IsConfigured() bool {
	return c.apiKey != ""
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
		Description string `json:"description"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Search returns articles matching query published since from.
func (c *NewsAPIClient) Search(ctx context.Context, query string, from time.Time, pageSize int) ([]Item, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("newsapi: no API key")
	}
	if pageSize > 100 {
		pageSize = 100
	}

	params := url.Values{
		"q":        {query},
		"from":     {from.Format("2006-01-02")},
		"language": {"en"},
		"pageSize": {strconv.Itoa(pageSize)},
		"sortBy":   {"publishedAt"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	defer resp.Body.Close()

	var result newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("newsapi: decoding response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || result.Status != "ok" {
		return nil, fmt.Errorf("newsapi: HTTP %d: %s %s", resp.StatusCode, result.Code, result.Message)
	}

	var items []Item
	for _, a := range result.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		if a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}

		item := Item{URL: a.URL, Title: strings.TrimSpace(a.Title), Source: "NewsAPI"}
		if a.Source.Name != "" {
			item.Source = a.Source.Name
		}
		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			item.Published = &t
		}
		item.Excerpt = strings.TrimSpace(a.Description)
		if item.Excerpt == "" {
			item.Excerpt = strings.TrimSpace(a.Content)
		}
		items = append(items, item)
	}

	c.logger.Info("newsapi search", zap.String("query", query), zap.Int("articles", len(items)))
	return items, nil
}

// SearchWithKeywords runs the base query and one "<query> <keyword>" query
// per keyword, deduplicating by URL. A failing keyword query is logged and
// skipped; only a failing base query is an error.
func (c *NewsAPIClient) SearchWithKeywords(ctx context.Context, baseQuery string, keywords []string, from time.Time) ([]Item, error) {
	seen := make(map[string]struct{})
	var all []Item
	add := func(items []Item) {
		for _, it := range items {
			if _, ok := seen[it.URL]; !ok {
				seen[it.URL] = struct{}{}
				all = append(all, it)
			}
		}
	}

	items, err := c.Search(ctx, baseQuery, from, 100)
	if err != nil {
		return nil, err
	}
	add(items)

	for _, kw := range keywords {
		items, err := c.Search(ctx, baseQuery+" "+kw, from, 50)
		if err != nil {
			c.logger.Warn("newsapi keyword search failed", zap.String("keyword", kw), zap.Error(err))
			continue
		}
		add(items)
	}
	return all, nil
}
