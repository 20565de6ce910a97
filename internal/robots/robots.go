package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
)

// maxRobotsSize caps how much of robots.txt is read.
const maxRobotsSize = 512 * 1024

// Policy is the robots policy for one origin.
// It is built once per run and is safe for concurrent use.
type Policy struct {
	data       *robotstxt.RobotsData
	crawlDelay time.Duration
	hasDelay   bool
}

// Permissive returns a policy that allows everything and has no crawl delay.
func Permissive() *Policy {
	return &Policy{}
}

// Parse builds a policy from robots.txt content.
// Content that the rule parser cannot understand still yields a permissive
// rule set, but its Crawl-delay is honored.
func Parse(content []byte, userAgent string) *Policy {
	p := &Policy{}
	if data, err := robotstxt.FromBytes(content); err == nil {
		p.data = data
	}
	p.crawlDelay, p.hasDelay = ParseCrawlDelay(string(content), userAgent)
	return p
}

// IsAllowed reports whether userAgent may fetch rawURL.
func (p *Policy) IsAllowed(userAgent, rawURL string) bool {
	if p == nil || p.data == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return p.data.TestAgent(u.RequestURI(), userAgent)
}

// CrawlDelay returns the crawl delay and whether one was declared.
func (p *Policy) CrawlDelay() (time.Duration, bool) {
	if p == nil {
		return 0, false
	}
	return p.crawlDelay, p.hasDelay
}

// Load fetches <origin>/robots.txt and builds the policy.
//
// The returned policy is never nil. On any failure (network error, non-2xx
// status, unreadable body) a permissive policy is returned together with
// the error, so the caller can log it and continue crawling.
func Load(ctx context.Context, client *http.Client, origin, userAgent string) (*Policy, error) {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	robotsURL := strings.TrimRight(origin, "/") + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Permissive(), fmt.Errorf("build robots request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Permissive(), fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Permissive(), fmt.Errorf("%w: status %d", ErrRobotsUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return Permissive(), fmt.Errorf("read robots.txt: %w", err)
	}

	return Parse(body, userAgent), nil
}
