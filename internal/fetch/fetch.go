// Package fetch retrieves web pages, directly or through a scraping proxy,
// and reduces them to readable text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultUserAgent is sent on direct fetches so sites serve the regular page.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const maxBodyBytes = 10 << 20

// StatusError is returned when the page (or proxy) answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Options configures a Fetcher. The proxy is used only when both
// ProxyAPIKey and ProxyURLTemplate are set.
type Options struct {
	ProxyAPIKey      string
	ProxyURLTemplate string
	UserAgent        string
	Timeout          time.Duration
}

// Observer is notified after every fetch.
type Observer interface {
	ObserveFetch(viaProxy bool, err error)
}

// Fetcher downloads pages.
type Fetcher struct {
	opts     Options
	client   *http.Client
	logger   *zap.Logger
	observer Observer
}

// New creates a Fetcher.
func New(opts Options, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Fetcher{
		opts:   opts,
		logger: logger,
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// SetObserver registers o to be told about every fetch.
func (f *Fetcher) SetObserver(o Observer) {
	f.observer = o
}

// UsesProxy reports whether fetches go through the scraping proxy.
func (f *Fetcher) UsesProxy() bool {
	return f.opts.ProxyAPIKey != "" && f.opts.ProxyURLTemplate != ""
}

// RequestURL returns the URL actually requested for target.
func (f *Fetcher) RequestURL(target string) string {
	if !f.UsesProxy() {
		return target
	}
	r := strings.NewReplacer(
		"{API_KEY}", url.QueryEscape(f.opts.ProxyAPIKey),
		"{URL}", url.QueryEscape(target),
	)
	return r.Replace(f.opts.ProxyURLTemplate)
}

// Fetch returns the raw HTML of target.
func (f *Fetcher) Fetch(ctx context.Context, target string) (html string, err error) {
	viaProxy := f.UsesProxy()
	defer func() {
		if f.observer != nil {
			f.observer.ObserveFetch(viaProxy, err)
		}
	}()

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid URL %q", target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.RequestURL(target), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if !viaProxy {
		req.Header.Set("User-Agent", f.opts.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: target, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", target, err)
	}

	f.logger.Debug("fetched page", zap.String("url", target), zap.Bool("proxy", viaProxy), zap.Int("bytes", len(body)))
	return string(body), nil
}

// FetchText fetches target and extracts its text. See ExtractText.
func (f *Fetcher) FetchText(ctx context.Context, target, selector string) (string, error) {
	html, err := f.Fetch(ctx, target)
	if err != nil {
		return "", err
	}
	return ExtractText(html, target, selector, f.logger), nil
}
