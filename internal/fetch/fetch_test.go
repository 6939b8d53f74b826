package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

type recordingObserver struct {
	calls []bool
	errs  []error
}

func (r *recordingObserver) ObserveFetch(viaProxy bool, err error) {
	r.calls = append(r.calls, viaProxy)
	r.errs = append(r.errs, err)
}

func TestFetchDirect(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body><p>hello</p></body></html>"))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	f := New(Options{}, nil)
	f.SetObserver(obs)

	html, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(html, "hello") {
		t.Errorf("html = %q", html)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if len(obs.calls) != 1 || obs.calls[0] || obs.errs[0] != nil {
		t.Errorf("observer = %+v", obs)
	}
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(Options{}, nil).Fetch(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusForbidden {
		t.Errorf("Code = %d", se.Code)
	}
}

func TestFetchRejectsBadURL(t *testing.T) {
	for _, target := range []string{"", "ftp://x.example", "not a url", "https://"} {
		if _, err := New(Options{}, nil).Fetch(context.Background(), target); err == nil {
			t.Errorf("Fetch(%q) succeeded", target)
		}
	}
}

func TestFetchViaProxy(t *testing.T) {
	var gotKey, gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api_key")
		gotURL = r.URL.Query().Get("url")
		w.Write([]byte("<html><body>proxied</body></html>"))
	}))
	defer srv.Close()

	f := New(Options{ProxyAPIKey: "k&1", ProxyURLTemplate: srv.URL + "/?api_key={API_KEY}&url={URL}"}, nil)
	if !f.UsesProxy() {
		t.Fatal("UsesProxy = false")
	}
	html, err := f.Fetch(context.Background(), "https://target.example/a?b=c")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(html, "proxied") {
		t.Errorf("html = %q", html)
	}
	if gotKey != "k&1" {
		t.Errorf("api_key = %q", gotKey)
	}
	if gotURL != "https://target.example/a?b=c" {
		t.Errorf("url = %q", gotURL)
	}
}

func TestRequestURLNeedsBothProxySettings(t *testing.T) {
	f := New(Options{ProxyURLTemplate: "https://proxy.example/?u={URL}"}, nil)
	if f.UsesProxy() {
		t.Error("UsesProxy without key")
	}
	if got := f.RequestURL("https://a.example"); got != "https://a.example" {
		t.Errorf("RequestURL = %q", got)
	}

	f = New(Options{ProxyAPIKey: "k", ProxyURLTemplate: "https://proxy.example/?k={API_KEY}&u={URL}"}, nil)
	want := "https://proxy.example/?k=k&u=" + url.QueryEscape("https://a.example")
	if got := f.RequestURL("https://a.example"); got != want {
		t.Errorf("RequestURL = %q, want %q", got, want)
	}
}

func TestExtractTextSelector(t *testing.T) {
	html := `<html><body><nav>menu</nav><div class="post"><p>First</p> <p>Second</p></div></body></html>`

	if got := ExtractText(html, "https://a.example", ".post", nil); got != "First Second" {
		t.Errorf("selector text = %q", got)
	}
	if got := ExtractText(html, "https://a.example", ".missing", nil); got != "menu First Second" {
		t.Errorf("fallback text = %q", got)
	}
	if got := ExtractText(html, "https://a.example", "[[[", nil); got != "menu First Second" {
		t.Errorf("invalid selector text = %q", got)
	}
}

func TestExtractTextShortPageUsesBody(t *testing.T) {
	html := `<html><head><script>var x;</script></head><body><p>Tiny page</p></body></html>`
	if got := ExtractText(html, "https://a.example", "", nil); got != "Tiny page" {
		t.Errorf("text = %q", got)
	}
}

func TestExtractTextTruncates(t *testing.T) {
	long := strings.Repeat("word ", MaxTextLength)
	html := "<html><body><div id=\"x\">" + long + "</div></body></html>"

	got := ExtractText(html, "", "#x", nil)
	if n := len([]rune(got)); n != MaxTextLength {
		t.Errorf("len = %d, want %d", n, MaxTextLength)
	}
}

func TestHTMLToText(t *testing.T) {
	if got := HTMLToText("<p>Hello <b>world</b></p>\n<p>again</p>"); got != "Hello world again" {
		t.Errorf("HTMLToText = %q", got)
	}
}
