package encyclopedia

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// UniqueLink is one entry of the consolidated link listing.
type UniqueLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DisplayTitle returns the title, or the URL's hostname when the title is empty.
func (u UniqueLink) DisplayTitle() string {
	if u.Title != "" {
		return u.Title
	}
	parsed, err := url.Parse(u.URL)
	if err != nil || parsed.Hostname() == "" {
		return u.URL
	}
	return parsed.Hostname()
}

// UniqueLinks walks every link in every category, keeps the first title seen
// for each distinct non-empty URL and returns the result sorted by title.
// The sort key is the raw title; ties keep first-seen order.
func UniqueLinks(categories []Category) []UniqueLink {
	seen := make(map[string]struct{})
	out := []UniqueLink{}
	for _, c := range categories {
		for _, l := range c.Links {
			if l.URL == "" {
				continue
			}
			if _, ok := seen[l.URL]; ok {
				continue
			}
			seen[l.URL] = struct{}{}
			out = append(out, UniqueLink{Title: l.Title, URL: l.URL})
		}
	}

	col := collate.New(language.English, collate.Loose)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Title, out[j].Title) < 0
	})
	return out
}

// Filter keeps the categories whose metadata or links contain query,
// case-insensitively. An empty query returns the input unchanged.
func Filter(categories []Category, query string) []Category {
	if query == "" {
		return categories
	}
	q := strings.ToLower(query)
	contains := func(s string) bool {
		return strings.Contains(strings.ToLower(s), q)
	}

	out := []Category{}
	for _, c := range categories {
		if contains(c.Title) || contains(c.Description) {
			out = append(out, c)
			continue
		}
		for _, l := range c.Links {
			if contains(l.Title) || contains(l.URL) || contains(l.Excerpt) || contains(l.PlatformLabel) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
