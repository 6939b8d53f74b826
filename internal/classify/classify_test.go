package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

func TestByTitle(t *testing.T) {
	tests := []struct {
		title string
		want  encyclopedia.Kind
	}{
		{"News Articles", encyclopedia.KindNews},
		{"Blog Posts & Opinion Pieces", encyclopedia.KindSocial},
		{"Opinion columns", encyclopedia.KindSocial},
		{"YouTube Content", encyclopedia.KindSocial},
		{"Podcast Appearances & Mentions", encyclopedia.KindSocial},
		{"General Web Search", encyclopedia.KindSearch},
		{"Public Legal Mentions & Filings", encyclopedia.KindLegal},
		{"Books & Publications", encyclopedia.KindOther},
		{"", encyclopedia.KindOther},
		// earlier rules win when several keywords appear
		{"Legal news roundup", encyclopedia.KindNews},
		{"Search for blog posts", encyclopedia.KindSocial},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ByTitle(tt.title), "title %q", tt.title)
	}
}

func TestClassifyOverrideWins(t *testing.T) {
	cat := encyclopedia.Category{Title: "News Articles"}
	link := encyclopedia.Link{KindOverride: encyclopedia.KindLegal}

	assert.Equal(t, encyclopedia.KindLegal, Classify(link, cat))
	assert.Equal(t, encyclopedia.KindNews, Classify(encyclopedia.Link{}, cat))
}

func TestClassifyIsStable(t *testing.T) {
	for _, c := range encyclopedia.Seed(time.Now()) {
		for _, l := range c.Links {
			assert.Equal(t, Classify(l, c), Classify(l, c))
		}
	}
}
