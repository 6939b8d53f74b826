// Package classify infers the view-level kind of a link.
package classify

import (
	"strings"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

type rule struct {
	keywords []string
	kind     encyclopedia.Kind
}

// rules are evaluated in order against the lower-cased category title.
// The first rule with a matching keyword wins.
var rules = []rule{
	{keywords: []string{"news"}, kind: encyclopedia.KindNews},
	{keywords: []string{"blog", "opinion"}, kind: encyclopedia.KindSocial},
	{keywords: []string{"youtube", "podcast"}, kind: encyclopedia.KindSocial},
	{keywords: []string{"search"}, kind: encyclopedia.KindSearch},
	{keywords: []string{"legal"}, kind: encyclopedia.KindLegal},
}

// Classify returns the link's kind. An explicit override always wins.
func Classify(link encyclopedia.Link, category encyclopedia.Category) encyclopedia.Kind {
	if link.KindOverride != "" {
		return link.KindOverride
	}
	return ByTitle(category.Title)
}

// ByTitle applies the rule table to a category title.
func ByTitle(title string) encyclopedia.Kind {
	t := strings.ToLower(title)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(t, kw) {
				return r.kind
			}
		}
	}
	return encyclopedia.KindOther
}
