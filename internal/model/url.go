package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotAbsoluteURL is returned when a URL has no scheme or host.
var ErrNotAbsoluteURL = errors.New("url is not absolute")

// CrawlURL is a normalized absolute URL: surrounding whitespace trimmed and
// the fragment removed. Two CrawlURLs are equal iff their normalized forms
// are equal, so the type can be used directly as a map key.
type CrawlURL string

// NormalizeURL trims whitespace, strips the fragment and checks that the
// result is an absolute http(s) URL.
//
// Normalization is purely textual beyond the fragment cut. Scheme and host
// case are preserved so that a persisted seen list from an earlier run keeps
// matching byte for byte.
func NormalizeURL(raw string) (CrawlURL, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrNotAbsoluteURL, raw)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q in %q", u.Scheme, raw)
	}

	return CrawlURL(s), nil
}

// MustNormalizeURL is like NormalizeURL but panics on error.
// It is intended for constants in tests and examples.
func MustNormalizeURL(raw string) CrawlURL {
	u, err := NormalizeURL(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the normalized URL text.
func (u CrawlURL) String() string {
	return string(u)
}

// Parse returns the parsed form of the URL.
func (u CrawlURL) Parse() (*url.URL, error) {
	return url.Parse(string(u))
}

// Origin returns "scheme://host[:port]" for the URL, lower-cased.
// It returns an empty string if the URL cannot be parsed.
func (u CrawlURL) Origin() string {
	parsed, err := u.Parse()
	if err != nil {
		return ""
	}
	return OriginOf(parsed)
}

// OriginOf returns "scheme://host[:port]" for a parsed URL, lower-cased.
func OriginOf(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
