package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/text/encoding/charmap"

	"github.com/nao1215/wikiexport/internal/model"
)

const testPage = `<html><head><title>Stone</title></head><body><p>Hello</p></body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/Stone", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testPage))
	})
	mux.HandleFunc("/wiki/Missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	mux.HandleFunc("/wiki/Image.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/wiki/Gzip", func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(testPage))
		_ = gz.Close()
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	})
	mux.HandleFunc("/wiki/Brotli", func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		br := brotli.NewWriter(&buf)
		_, _ = br.Write([]byte(testPage))
		_ = br.Close()
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(buf.Bytes())
	})
	mux.HandleFunc("/wiki/Latin1", func(w http.ResponseWriter, _ *http.Request) {
		encoded, _ := charmap.ISO8859_1.NewEncoder().String("<p>Café</p>")
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte(encoded))
	})
	mux.HandleFunc("/wiki/Headers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestBot/1.0" ||
			r.Header.Get("Cookie") != "session=abc" ||
			r.Header.Get("X-Custom") != "value" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testPage))
	})
	mux.HandleFunc("/wiki/Redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/wiki/Stone", http.StatusFound)
	})
	mux.HandleFunc("/wiki/Big", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(strings.Repeat("a", 2048)))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetch(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	f, err := New(5*time.Second, WithUserAgent("TestBot/1.0"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name        string
		path        string
		wantOutcome model.Outcome
		wantBody    string
	}{
		{name: "html page", path: "/wiki/Stone", wantBody: testPage},
		{name: "gzip encoded", path: "/wiki/Gzip", wantBody: testPage},
		{name: "brotli encoded", path: "/wiki/Brotli", wantBody: testPage},
		{name: "latin1 converted to utf-8", path: "/wiki/Latin1", wantBody: "<p>Café</p>"},
		{name: "not found", path: "/wiki/Missing", wantOutcome: model.OutcomeHTTPStatus},
		{name: "not html", path: "/wiki/Image.png", wantOutcome: model.OutcomeNotHTML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := f.Fetch(context.Background(), model.CrawlURL(server.URL+tt.path))
			if tt.wantOutcome != "" {
				skip, ok := AsSkip(err)
				if !ok {
					t.Fatalf("expected SkipError, got %v", err)
				}
				if skip.Outcome != tt.wantOutcome {
					t.Errorf("outcome = %v, want %v", skip.Outcome, tt.wantOutcome)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if string(resp.Body) != tt.wantBody {
				t.Errorf("body = %q, want %q", resp.Body, tt.wantBody)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d", resp.StatusCode)
			}
		})
	}
}

func TestFetchStatusError(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	f, err := New(5 * time.Second)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.Fetch(context.Background(), model.CrawlURL(server.URL+"/wiki/Missing"))
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
	skip, _ := AsSkip(err)
	if skip == nil || skip.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404 in SkipError, got %+v", skip)
	}
}

func TestFetchInjectsHeadersAndCookie(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	f, err := New(5*time.Second,
		WithUserAgent("TestBot/1.0"),
		WithCookie("session=abc"),
		WithHeaders(map[string]string{"X-Custom": "value"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Fetch(context.Background(), model.CrawlURL(server.URL+"/wiki/Headers")); err != nil {
		t.Errorf("Fetch() error = %v", err)
	}
}

func TestFetchFollowsRedirect(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	f, err := New(5 * time.Second)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := f.Fetch(context.Background(), model.CrawlURL(server.URL+"/wiki/Redirect"))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.URL != model.CrawlURL(server.URL+"/wiki/Redirect") {
		t.Errorf("URL = %q", resp.URL)
	}
	if resp.FinalURL != server.URL+"/wiki/Stone" {
		t.Errorf("FinalURL = %q", resp.FinalURL)
	}
}

func TestFetchRejectsCrossOriginRedirect(t *testing.T) {
	t.Parallel()

	var foreignHits atomic.Int32
	var leaked atomic.Bool
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignHits.Add(1)
		if r.Header.Get("Cookie") != "" || r.Header.Get("Authorization") != "" {
			leaked.Store(true)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>Elsewhere</p></body></html>`))
	}))
	t.Cleanup(foreign.Close)

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, foreign.URL+"/wiki/Start", http.StatusFound)
	}))
	t.Cleanup(site.Close)

	f, err := New(5*time.Second,
		WithCookie("session=SECRET"),
		WithHeaders(map[string]string{"Authorization": "Bearer TOKEN"}),
		WithSiteOrigin(site.URL),
	)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := f.Fetch(context.Background(), model.CrawlURL(site.URL+"/wiki/Start"))
	if resp != nil {
		t.Errorf("expected no response, got FinalURL %q", resp.FinalURL)
	}
	skip, ok := AsSkip(err)
	if !ok {
		t.Fatalf("expected SkipError, got %v", err)
	}
	if skip.Outcome != model.OutcomeOffOrigin {
		t.Errorf("outcome = %v, want %v", skip.Outcome, model.OutcomeOffOrigin)
	}
	if skip.URL != site.URL+"/wiki/Start" {
		t.Errorf("URL = %q", skip.URL)
	}
	if !errors.Is(err, ErrRedirectOutOfScope) {
		t.Errorf("expected ErrRedirectOutOfScope, got %v", err)
	}
	if got := foreignHits.Load(); got != 0 {
		t.Errorf("foreign server hits = %d, want 0", got)
	}
	if leaked.Load() {
		t.Error("credentials were sent to the foreign server")
	}
}

func TestFetchRedirectGate(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/Moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/wiki/Stone", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/wiki/Away", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/blog/Post", http.StatusFound)
	})
	var blogHits atomic.Int32
	mux.HandleFunc("/blog/Post", func(w http.ResponseWriter, _ *http.Request) {
		blogHits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testPage))
	})
	mux.HandleFunc("/wiki/Stone", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testPage))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	gate := func(u model.CrawlURL) (model.Outcome, bool) {
		parsed, err := u.Parse()
		if err != nil || !strings.HasPrefix(parsed.Path, "/wiki/") {
			return model.OutcomeOutsidePrefix, false
		}
		return model.OutcomeExported, true
	}
	f, err := New(5*time.Second, WithRedirectGate(gate))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("target accepted", func(t *testing.T) {
		t.Parallel()

		resp, err := f.Fetch(context.Background(), model.CrawlURL(server.URL+"/wiki/Moved"))
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.FinalURL != server.URL+"/wiki/Stone" {
			t.Errorf("FinalURL = %q", resp.FinalURL)
		}
	})

	t.Run("target rejected", func(t *testing.T) {
		t.Parallel()

		_, err := f.Fetch(context.Background(), model.CrawlURL(server.URL+"/wiki/Away"))
		skip, ok := AsSkip(err)
		if !ok {
			t.Fatalf("expected SkipError, got %v", err)
		}
		if skip.Outcome != model.OutcomeOutsidePrefix {
			t.Errorf("outcome = %v, want %v", skip.Outcome, model.OutcomeOutsidePrefix)
		}
		if !errors.Is(err, ErrRedirectOutOfScope) {
			t.Errorf("expected ErrRedirectOutOfScope, got %v", err)
		}
		if got := blogHits.Load(); got != 0 {
			t.Errorf("rejected target hits = %d, want 0", got)
		}
	})
}

func TestFetchCredentialsOnlyForSiteOrigin(t *testing.T) {
	t.Parallel()

	type seen struct{ ua, cookie, custom string }
	record := func(ch chan<- seen) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ch <- seen{ua: r.Header.Get("User-Agent"), cookie: r.Header.Get("Cookie"), custom: r.Header.Get("X-Custom")}
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(testPage))
		}
	}
	siteSeen := make(chan seen, 1)
	otherSeen := make(chan seen, 1)
	site := httptest.NewServer(record(siteSeen))
	t.Cleanup(site.Close)
	other := httptest.NewServer(record(otherSeen))
	t.Cleanup(other.Close)

	f, err := New(5*time.Second,
		WithUserAgent("TestBot/1.0"),
		WithCookie("session=abc"),
		WithHeaders(map[string]string{"X-Custom": "value"}),
		WithSiteOrigin(site.URL),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Fetch(context.Background(), model.CrawlURL(site.URL+"/wiki/Stone")); err != nil {
		t.Fatalf("Fetch(site) error = %v", err)
	}
	if _, err := f.Fetch(context.Background(), model.CrawlURL(other.URL+"/wiki/Stone")); err != nil {
		t.Fatalf("Fetch(other) error = %v", err)
	}

	got := <-siteSeen
	if got != (seen{ua: "TestBot/1.0", cookie: "session=abc", custom: "value"}) {
		t.Errorf("site request headers = %+v", got)
	}
	got = <-otherSeen
	if got != (seen{ua: "TestBot/1.0"}) {
		t.Errorf("other origin request headers = %+v", got)
	}
}

func TestFetchBodyTooLarge(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	f, err := New(5*time.Second, WithMaxBodySize(1024))
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.Fetch(context.Background(), model.CrawlURL(server.URL+"/wiki/Big"))
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestFetchNetworkErrorIsSkip(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	f, err := New(time.Second)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.Fetch(context.Background(), model.CrawlURL(addr+"/wiki/Stone"))
	skip, ok := AsSkip(err)
	if !ok {
		t.Fatalf("expected SkipError, got %v", err)
	}
	if skip.Outcome != model.OutcomeFetchError {
		t.Errorf("outcome = %v, want %v", skip.Outcome, model.OutcomeFetchError)
	}
}

func TestNewInvalidProxy(t *testing.T) {
	t.Parallel()

	tests := []string{"ftp://proxy:21", "://bad", "socks5://"}
	for _, proxyURL := range tests {
		if _, err := New(time.Second, WithProxy(proxyURL)); !errors.Is(err, ErrInvalidProxy) {
			t.Errorf("New(WithProxy(%q)) error = %v, want ErrInvalidProxy", proxyURL, err)
		}
	}
}

func TestNewSOCKS5Proxy(t *testing.T) {
	t.Parallel()

	f, err := New(time.Second, WithProxy("socks5://127.0.0.1:9050"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if f.Client() == nil {
		t.Error("expected non-nil client")
	}
}

func TestIsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=UTF-8", true},
		{"TEXT/HTML", true},
		{"application/xhtml+xml", true},
		{"application/json", false},
		{"image/png", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsHTML(tt.contentType); got != tt.want {
			t.Errorf("IsHTML(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
