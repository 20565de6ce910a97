package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/wikiexport/internal/model"
)

// maxRedirects bounds redirect chains.
const maxRedirects = 10

// newTransport builds the HTTP transport, optionally routed through a proxy.
// socks5:// proxies go through golang.org/x/net/proxy, http(s):// proxies
// through the standard CONNECT support.
func newTransport(proxyURL string) (*http.Transport, error) {
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, proxyURL)
	}

	switch strings.ToLower(u.Scheme) {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			password, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = dialContext(dialer)
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}

	return transport, nil
}

// dialContext adapts a proxy.Dialer to the transport's DialContext.
// The SOCKS5 dialer from x/net implements proxy.ContextDialer.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// checkRedirect limits redirect chains and keeps every hop on the origin
// of the first request. When a redirect gate is set, the target must also
// pass it.
func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return http.ErrUseLastResponse
	}
	if len(via) == 0 {
		return nil
	}

	first := via[0].URL
	target := req.URL.String()
	if model.OriginOf(req.URL) != model.OriginOf(first) {
		return &SkipError{
			Outcome: model.OutcomeOffOrigin,
			URL:     first.String(),
			Err:     fmt.Errorf("%w: %s", ErrRedirectOutOfScope, target),
		}
	}

	if f.redirectGate == nil {
		return nil
	}
	u, err := model.NormalizeURL(target)
	if err != nil {
		return &SkipError{
			Outcome: model.OutcomeOffOrigin,
			URL:     first.String(),
			Err:     fmt.Errorf("%w: %s: %v", ErrRedirectOutOfScope, target, err),
		}
	}
	if outcome, ok := f.redirectGate(u); !ok {
		return &SkipError{
			Outcome: outcome,
			URL:     first.String(),
			Err:     fmt.Errorf("%w: %s (%s)", ErrRedirectOutOfScope, target, outcome),
		}
	}
	return nil
}

// headerInjectingTransport sets the configured user agent on every request.
// The cookie and custom headers are only sent to the site origin.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	cookie    string
	headers   map[string]string

	// origin limits cookie and header injection. Empty means every origin.
	origin string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	if t.origin != "" && model.OriginOf(clone.URL) != t.origin {
		return t.base.RoundTrip(clone)
	}

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
