package crawler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/wikiexport/internal/fetcher"
	"github.com/nao1215/wikiexport/internal/metrics"
	"github.com/nao1215/wikiexport/internal/model"
	"github.com/nao1215/wikiexport/internal/politeness"
	"github.com/nao1215/wikiexport/internal/robots"
)

// PageFetcher fetches one HTML page. *fetcher.Fetcher implements it.
// Skips are reported as *fetcher.SkipError.
type PageFetcher interface {
	Fetch(ctx context.Context, u model.CrawlURL) (*fetcher.Response, error)
}

// Recorder receives the crawl history. *database.Recorder implements it.
// Recorder errors are logged and never abort a run.
type Recorder interface {
	Begin(ctx context.Context, startURL string, startedAt time.Time) error
	Record(ctx context.Context, entry model.CrawlEntry) error
	Finish(ctx context.Context, summary *model.RunSummary) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock sets the clock used for pacing and timestamps.
func WithClock(c politeness.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f PageFetcher) Option {
	return func(e *Engine) {
		e.fetcher = f
	}
}

// WithHTTPClient sets the client used to load robots.txt.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = client
	}
}

// WithRobotsPolicy uses policy instead of loading robots.txt.
func WithRobotsPolicy(policy *robots.Policy) Option {
	return func(e *Engine) {
		e.robots = policy
	}
}

// WithRecorder stores the run in a crawl history.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithMetrics publishes progress to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

type nopRecorder struct{}

func (nopRecorder) Begin(context.Context, string, time.Time) error  { return nil }
func (nopRecorder) Record(context.Context, model.CrawlEntry) error  { return nil }
func (nopRecorder) Finish(context.Context, *model.RunSummary) error { return nil }
