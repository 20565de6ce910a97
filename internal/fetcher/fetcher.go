package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"maps"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/wikiexport/internal/model"
)

// DefaultMaxBodySize caps response bodies.
const DefaultMaxBodySize int64 = 10 * 1024 * 1024

// Response is a successfully fetched HTML page.
type Response struct {
	// URL is the requested URL.
	URL model.CrawlURL

	// FinalURL is the URL after redirects. Relative links resolve against it.
	FinalURL string

	// Body is the decoded UTF-8 HTML.
	Body []byte

	// ContentType is the response Content-Type header.
	ContentType string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Duration is the time spent on the request and body read.
	Duration time.Duration
}

// Fetcher fetches HTML pages over HTTP. It is safe for concurrent use.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	headers     map[string]string
	cookie      string
	proxyURL    string
	siteOrigin  string

	redirectGate func(model.CrawlURL) (model.Outcome, bool)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum decoded body size.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithHeaders adds custom headers to requests for the site origin.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = maps.Clone(headers)
	}
}

// WithCookie adds a raw cookie string (e.g. "session=abc") to requests
// for the site origin.
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithProxy routes requests through a socks5:// or http(s):// proxy.
func WithProxy(proxyURL string) Option {
	return func(f *Fetcher) {
		f.proxyURL = proxyURL
	}
}

// WithSiteOrigin restricts the cookie and custom headers to requests whose
// origin ("scheme://host[:port]") equals origin. Without it they are sent
// to every host.
func WithSiteOrigin(origin string) Option {
	return func(f *Fetcher) {
		f.siteOrigin = strings.ToLower(strings.TrimSuffix(origin, "/"))
	}
}

// WithRedirectGate makes redirects follow only targets the gate accepts.
// A rejected redirect is reported as a *SkipError with the gate's outcome.
func WithRedirectGate(gate func(model.CrawlURL) (model.Outcome, bool)) Option {
	return func(f *Fetcher) {
		f.redirectGate = gate
	}
}

// WithHTTPClient replaces the underlying HTTP client.
// The proxy option is ignored when a client is supplied.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// New creates a Fetcher with the given per-request timeout.
func New(timeout time.Duration, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:     timeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		transport, err := newTransport(f.proxyURL)
		if err != nil {
			return nil, err
		}
		jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options
		f.client = &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   timeout,
		}
	}

	base := f.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := *f.client
	client.Transport = &headerInjectingTransport{
		base:      base,
		userAgent: f.userAgent,
		cookie:    f.cookie,
		headers:   f.headers,
		origin:    f.siteOrigin,
	}
	client.CheckRedirect = f.checkRedirect
	f.client = &client

	return f, nil
}

// Client returns the HTTP client used by the fetcher, so robots.txt is
// requested with the same transport, headers and proxy.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch downloads u. Page-level failures are returned as *SkipError.
func (f *Fetcher) Fetch(ctx context.Context, u model.CrawlURL) (*Response, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &SkipError{Outcome: model.OutcomeFetchError, URL: u.String(), Err: err}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if skip, ok := AsSkip(err); ok {
			return nil, skip
		}
		return nil, &SkipError{Outcome: model.OutcomeFetchError, URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &SkipError{
			Outcome:     model.OutcomeHTTPStatus,
			URL:         u.String(),
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Err:         fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode),
		}
	}

	if !IsHTML(contentType) {
		return nil, &SkipError{
			Outcome:     model.OutcomeNotHTML,
			URL:         u.String(),
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Err:         fmt.Errorf("%w: %q", ErrNotHTML, contentType),
		}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, &SkipError{
			Outcome:     model.OutcomeFetchError,
			URL:         u.String(),
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Err:         err,
		}
	}

	finalURL := u.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		URL:         u,
		FinalURL:    finalURL,
		Body:        body,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
		Duration:    time.Since(start),
	}, nil
}

// IsHTML reports whether a Content-Type header denotes an HTML document.
func IsHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// readBody decompresses, size-limits and converts the body to UTF-8.
func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	decoded, err := charset.NewReader(reader, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("charset decode: %w", err)
	}

	body, err := io.ReadAll(io.LimitReader(decoded, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}
	return body, nil
}
