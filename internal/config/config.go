package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/wikiexport/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "wikiexport"

	// DefaultPathPrefix restricts the crawl to MediaWiki article paths.
	DefaultPathPrefix = "/wiki/"

	// DefaultUserAgent identifies the crawler in HTTP requests and robots.txt.
	DefaultUserAgent = "WikiExportBot/1.0 (respectful; contact: none)"

	// DefaultTimeout is the per-request network timeout.
	DefaultTimeout = 25 * time.Second

	// DefaultMaxPages is the maximum number of pages exported per run.
	DefaultMaxPages = 1500

	// DefaultOutDir is the output directory.
	DefaultOutDir = "wiki_export"

	// DefaultWorkers is the number of concurrent fetch workers.
	// One worker reproduces strictly sequential crawling.
	DefaultWorkers = 1

	// DefaultMaxBodySize limits the decoded response body size.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// HistoryDBFileName is the SQLite crawl history file in the output directory.
	HistoryDBFileName = "crawl.db"
)

// DefaultExcludePatterns reject old revisions, edit and history views, and diffs.
var DefaultExcludePatterns = []string{"?oldid=", "&oldid=", "action=edit", "action=history", "diff="}

// Config is the crawl configuration. It is resolved once before the crawl
// starts and not modified afterwards.
type Config struct {
	// StartURL is the page the crawl begins from.
	StartURL string

	// PathPrefix restricts crawling to paths starting with it.
	PathPrefix string

	// UserAgent is sent with every request and matched against robots.txt.
	UserAgent string

	// Timeout is the per-request network timeout.
	Timeout time.Duration

	// MaxPages is the maximum number of pages exported in this run.
	MaxPages int

	// Delay raises the delay between requests. It never goes below the
	// robots.txt Crawl-delay or the one second minimum. nil means no override.
	Delay *time.Duration

	// HonorRobots enables robots.txt checks and Crawl-delay.
	HonorRobots bool

	// OutDir is the output directory.
	OutDir string

	// Workers is the number of concurrent fetch workers. Requests are paced
	// globally, so more workers only help when fetches are slower than the delay.
	Workers int

	// MaxBodySize is the maximum decoded response body size in bytes.
	// Set to 0 to use the default (10MB).
	MaxBodySize int64

	// RetryFailed leaves URLs whose fetch failed (network error or non-2xx)
	// out of seen_urls.txt, so a later run may fetch them again.
	RetryFailed bool

	// ExcludePatterns rejects URLs containing any of these substrings.
	ExcludePatterns []string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// Cookie is a raw cookie string sent with every request.
	Cookie string

	// ProxyURL routes requests through a socks5:// or http(s):// proxy.
	ProxyURL string

	// HistoryDB records runs and per-URL outcomes in <OutDir>/crawl.db.
	HistoryDB bool

	// MetricsAddr serves Prometheus metrics on this address while crawling.
	// Empty disables the metrics endpoint.
	MetricsAddr string

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport prints the run summary as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the run summary as Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile also writes the run summary to this file. stdout then gets
	// the text summary.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the usual locations.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		PathPrefix:      DefaultPathPrefix,
		UserAgent:       DefaultUserAgent,
		Timeout:         DefaultTimeout,
		MaxPages:        DefaultMaxPages,
		HonorRobots:     true,
		OutDir:          DefaultOutDir,
		Workers:         DefaultWorkers,
		MaxBodySize:     DefaultMaxBodySize,
		ExcludePatterns: append([]string(nil), DefaultExcludePatterns...),
		HistoryDB:       true,
	}
}

// XDGConfigDir returns the XDG config directory for wikiexport.
// On Linux: ~/.config/wikiexport
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found. It performs no network activity.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StartURL) == "" {
		return ErrNoStartURL
	}

	start, err := model.NormalizeURL(c.StartURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStartURL, err)
	}

	if c.PathPrefix != "" {
		parsed, err := start.Parse()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidStartURL, err)
		}
		if !strings.HasPrefix(parsed.Path, c.PathPrefix) && !strings.HasPrefix(parsed.EscapedPath(), c.PathPrefix) {
			return fmt.Errorf("%w: %q does not start with %q", ErrStartURLOutsidePrefix, parsed.Path, c.PathPrefix)
		}
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.Delay != nil && *c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if strings.TrimSpace(c.OutDir) == "" {
		return ErrNoOutDir
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

// NormalizedStartURL returns the start URL in normalized form.
func (c *Config) NormalizedStartURL() (model.CrawlURL, error) {
	u, err := model.NormalizeURL(c.StartURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidStartURL, err)
	}
	return u, nil
}

// Origin returns "scheme://host[:port]" of the start URL.
func (c *Config) Origin() string {
	u, err := c.NormalizedStartURL()
	if err != nil {
		return ""
	}
	return u.Origin()
}

// Host returns the host of the start URL, used to look up site settings.
func (c *Config) Host() string {
	u, err := c.NormalizedStartURL()
	if err != nil {
		return ""
	}
	parsed, err := u.Parse()
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// HistoryDBPath returns the crawl history database path.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.OutDir, HistoryDBFileName)
}

// SetDelaySeconds sets the delay override from a number of seconds.
func (c *Config) SetDelaySeconds(seconds float64) {
	d := time.Duration(seconds * float64(time.Second))
	c.Delay = &d
}

// ApplySite copies the non-empty settings of site into the configuration.
// Headers are merged, other fields replace the current value.
func (c *Config) ApplySite(site SiteConfig) {
	if site.UserAgent != "" {
		c.UserAgent = site.UserAgent
	}
	if site.PathPrefix != "" {
		c.PathPrefix = site.PathPrefix
	}
	if site.Cookie != "" {
		c.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(site.Headers))
		}
		for k, v := range site.Headers {
			c.Headers[k] = v
		}
	}
	if len(site.ExcludePatterns) > 0 {
		c.ExcludePatterns = append([]string(nil), site.ExcludePatterns...)
	}
	if site.Delay != nil {
		c.SetDelaySeconds(*site.Delay)
	}
	if site.Workers > 0 {
		c.Workers = site.Workers
	}
	if site.ProxyURL != "" {
		c.ProxyURL = site.ProxyURL
	}
}
