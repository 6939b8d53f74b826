package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// MaxTextLength caps extracted text, in characters.
const MaxTextLength = 25000

// minArticleLength is the shortest readability result preferred over the
// plain body text.
const minArticleLength = 100

// ExtractText reduces an HTML page to text. With a selector the matching
// elements' text is used, falling back to the body when the selector is
// invalid or matches nothing. Without one the readability article text is
// preferred when it is substantial. The result is truncated to MaxTextLength.
func ExtractText(html, pageURL, selector string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("parsing HTML", zap.Error(err))
		return ""
	}

	var text string
	if selector = strings.TrimSpace(selector); selector != "" {
		sel, err := cascadia.Compile(selector)
		if err != nil {
			logger.Warn("invalid CSS selector, using page body", zap.String("selector", selector), zap.Error(err))
		} else {
			text = normalize(doc.FindMatcher(sel).Text())
			if text == "" {
				logger.Info("CSS selector matched no text, using page body", zap.String("selector", selector))
			}
		}
	} else {
		text = articleText(html, pageURL)
	}

	if text == "" {
		text = bodyText(doc)
	}
	return truncate(text, MaxTextLength)
}

// HTMLToText returns the visible text of an HTML fragment.
func HTMLToText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return normalize(fragment)
	}
	return normalize(doc.Text())
}

func articleText(html, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u == nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return ""
	}
	text := normalize(article.TextContent)
	if len([]rune(text)) > minArticleLength {
		return text
	}
	return ""
}

func bodyText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()
	body := doc.Find("body")
	if body.Length() == 0 {
		return normalize(doc.Text())
	}
	return normalize(body.Text())
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
