package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/wikiexport/internal/config"
	"github.com/nao1215/wikiexport/internal/exporter"
	"github.com/nao1215/wikiexport/internal/extractor"
	"github.com/nao1215/wikiexport/internal/fetcher"
	"github.com/nao1215/wikiexport/internal/frontier"
	"github.com/nao1215/wikiexport/internal/metrics"
	"github.com/nao1215/wikiexport/internal/model"
	"github.com/nao1215/wikiexport/internal/politeness"
	"github.com/nao1215/wikiexport/internal/robots"
)

// checkpointEvery is the number of exports between seen-file checkpoints.
const checkpointEvery = 25

// Engine runs one crawl. Create it with New; Run may be called once.
type Engine struct {
	cfg   *config.Config
	start model.CrawlURL

	logger     *slog.Logger
	clock      politeness.Clock
	fetcher    PageFetcher
	httpClient *http.Client
	robots     *robots.Policy
	recorder   Recorder
	metrics    *metrics.Metrics

	// scope is the running crawl's scheduler, read by the redirect gate.
	scope atomic.Pointer[politeness.Scheduler]

	mu    sync.Mutex
	state model.RunState
}

// New validates cfg and creates an Engine. Unless WithFetcher is given, an
// HTTP fetcher is built from cfg.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start, err := cfg.NormalizedStartURL()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		start:    start,
		logger:   slog.Default(),
		clock:    politeness.SystemClock{},
		recorder: nopRecorder{},
		state:    model.RunStateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}

	if e.fetcher == nil {
		f, err := fetcher.New(cfg.Timeout,
			fetcher.WithUserAgent(cfg.UserAgent),
			fetcher.WithMaxBodySize(cfg.MaxBodySize),
			fetcher.WithHeaders(cfg.Headers),
			fetcher.WithCookie(cfg.Cookie),
			fetcher.WithProxy(cfg.ProxyURL),
			fetcher.WithSiteOrigin(cfg.Origin()),
			fetcher.WithRedirectGate(e.classifyRedirect),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create fetcher: %w", err)
		}
		e.fetcher = f
	}
	if e.httpClient == nil {
		if c, ok := e.fetcher.(interface{ Client() *http.Client }); ok {
			e.httpClient = c.Client()
		} else {
			e.httpClient = &http.Client{Timeout: cfg.Timeout}
		}
	}
	return e, nil
}

// State returns the current run state.
func (e *Engine) State() model.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s model.RunState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run crawls until the frontier is empty, MaxPages pages have been exported,
// a fatal error occurs or ctx is cancelled. The returned summary is never nil.
// Cancellation returns ctx.Err(); fatal conditions return an error wrapping
// ErrFatal.
func (e *Engine) Run(ctx context.Context) (*model.RunSummary, error) {
	e.mu.Lock()
	if e.state != model.RunStateIdle {
		e.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	e.state = model.RunStateRunning
	e.mu.Unlock()

	summary := model.NewRunSummary(e.start.String())
	summary.State = model.RunStateRunning
	summary.StartedAt = e.clock.Now()

	exp, err := exporter.New(e.cfg.OutDir)
	if err != nil {
		return e.abort(summary, fmt.Errorf("%w: %w", ErrFatal, err))
	}
	summary.OutDir = exp.OutDir()
	summary.PagesDir = exp.PagesDir()
	summary.ManifestPath = exp.ManifestPath()
	summary.SeenPath = exp.SeenPath()

	prior, err := exporter.LoadSeen(exp.SeenPath())
	if err != nil {
		_ = exp.Close()
		return e.abort(summary, fmt.Errorf("%w: %w", ErrFatal, err))
	}

	r := &run{
		engine:    e,
		summary:   summary,
		exporter:  exp,
		frontier:  frontier.New(),
		inflight:  make(map[model.CrawlURL]struct{}),
		abandoned: make(map[model.CrawlURL]struct{}),
		failed:    make(map[model.CrawlURL]struct{}),
	}
	r.frontier.LoadVisited(prior)
	if len(prior) > 0 {
		previous, err := exporter.ReadManifest(exp.ManifestPath())
		if err != nil {
			e.logger.Warn("manifest unreadable", "path", exp.ManifestPath(), "error", err)
		}
		e.logger.Info("resuming from seen file", "path", exp.SeenPath(),
			"seen", r.frontier.VisitedCount(), "exported", len(previous))
	}

	r.scheduler = e.newScheduler(ctx, summary)
	e.scope.Store(r.scheduler)

	if err := e.recorder.Begin(ctx, summary.StartURL, summary.StartedAt); err != nil {
		e.logger.Warn("crawl history unavailable", "error", err)
		e.recorder = nopRecorder{}
	}

	if !r.frontier.Push(e.start) {
		e.logger.Info("start URL already visited in a previous run", "url", e.start)
	}

	runErr := r.loop(ctx)
	return r.finish(ctx, runErr)
}

// newScheduler loads robots.txt when honored and resolves the delay.
func (e *Engine) newScheduler(ctx context.Context, summary *model.RunSummary) *politeness.Scheduler {
	var (
		robotsDelay time.Duration
		hasDelay    bool
	)
	policy := e.robots
	if e.cfg.HonorRobots {
		if policy == nil {
			var err error
			policy, err = robots.Load(ctx, e.httpClient, e.cfg.Origin(), e.cfg.UserAgent)
			if err != nil {
				e.logger.Warn("robots.txt unavailable, crawling without restrictions", "origin", e.cfg.Origin(), "error", err)
			}
		}
		robotsDelay, hasDelay = policy.CrawlDelay()
	}

	delay, source := politeness.EffectiveDelay(e.cfg.Delay, robotsDelay, hasDelay)
	s := politeness.NewScheduler(politeness.Scope{
		Origin:          e.cfg.Origin(),
		PathPrefix:      e.cfg.PathPrefix,
		ExcludePatterns: e.cfg.ExcludePatterns,
		UserAgent:       e.cfg.UserAgent,
		HonorRobots:     e.cfg.HonorRobots,
		Robots:          policy,
	}, delay, politeness.WithClock(e.clock))

	summary.Delay = s.Delay()
	summary.DelaySource = source
	e.logger.Info("politeness delay", "delay", summary.Delay, "source", source)
	return s
}

// classifyRedirect applies the crawl scope to a redirect target. Before the
// scheduler exists (robots.txt loading) only the fetcher's origin check applies.
func (e *Engine) classifyRedirect(u model.CrawlURL) (model.Outcome, bool) {
	s := e.scope.Load()
	if s == nil {
		return model.OutcomeExported, true
	}
	return s.Classify(u)
}

func (e *Engine) abort(summary *model.RunSummary, err error) (*model.RunSummary, error) {
	summary.State = model.RunStateAborted
	summary.Error = err.Error()
	summary.FinishedAt = e.clock.Now()
	e.setState(model.RunStateAborted)
	e.logger.Error("crawl aborted", "error", err)
	return summary, err
}

// run is the dispatcher state of one Run call. Only the dispatcher goroutine
// touches it.
type run struct {
	engine    *Engine
	summary   *model.RunSummary
	exporter  *exporter.Exporter
	frontier  *frontier.Frontier
	scheduler *politeness.Scheduler

	// inflight URLs are popped but not yet handled.
	inflight map[model.CrawlURL]struct{}
	// abandoned URLs were popped but never fetched because of cancellation.
	abandoned map[model.CrawlURL]struct{}
	// failed URLs ended with a network error or non-2xx status.
	failed map[model.CrawlURL]struct{}
}

// loop dispatches URLs to workers and handles their results.
func (r *run) loop(ctx context.Context) error {
	e := r.engine
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	results := make(chan fetchResult, e.cfg.Workers)

	var fatal error
	for {
		for fatal == nil && gctx.Err() == nil &&
			len(r.inflight) < e.cfg.Workers &&
			r.summary.Exported+len(r.inflight) < e.cfg.MaxPages {
			u, ok := r.frontier.Pop()
			if !ok {
				break
			}
			r.summary.Visited++

			if outcome, ok := r.scheduler.Classify(u); !ok {
				r.complete(ctx, model.CrawlEntry{URL: u, Outcome: outcome, FetchedAt: e.clock.Now()})
				continue
			}

			r.inflight[u] = struct{}{}
			g.Go(func() error {
				results <- e.process(gctx, r.scheduler, u)
				return nil
			})
		}
		e.metrics.SetFrontierSize(r.frontier.Len())

		if len(r.inflight) == 0 {
			break
		}

		res := <-results
		delete(r.inflight, res.url)
		if fatal != nil {
			r.abandoned[res.url] = struct{}{}
			continue
		}
		if err := r.handle(ctx, res); err != nil {
			fatal = err
			cancel()
		}
	}

	_ = g.Wait()
	return fatal
}

// handle processes one worker result on the dispatcher goroutine.
func (r *run) handle(ctx context.Context, res fetchResult) error {
	e := r.engine

	if res.err != nil {
		if ctx.Err() != nil {
			r.abandoned[res.url] = struct{}{}
			return nil
		}
		entry := model.CrawlEntry{URL: res.url, Outcome: model.OutcomeFetchError, FetchedAt: res.fetchedAt}
		if skip, ok := fetcher.AsSkip(res.err); ok {
			entry.Outcome = skip.Outcome
			entry.StatusCode = skip.StatusCode
			entry.ContentType = skip.ContentType
		}
		if entry.Outcome.IsFetchFailure() {
			r.failed[res.url] = struct{}{}
		}
		e.logger.Debug("skip", "url", res.url, "outcome", entry.Outcome, "error", res.err)
		r.complete(ctx, entry)
		return nil
	}

	e.metrics.ObserveFetch(res.resp.Duration)
	entry := model.CrawlEntry{
		URL:         res.url,
		StatusCode:  res.resp.StatusCode,
		ContentType: res.resp.ContentType,
		FetchedAt:   res.fetchedAt,
	}

	doc := res.page.Document
	if extractor.IsEmpty(doc.Body) {
		entry.Outcome = model.OutcomeEmptyBody
		e.logger.Debug("skip", "url", res.url, "outcome", entry.Outcome)
		r.complete(ctx, entry)
		return nil
	}

	rec, err := r.exporter.Export(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFatal, err)
	}
	r.summary.Exported++
	entry.Outcome = model.OutcomeExported
	entry.Title = rec.Title
	entry.MDPath = rec.MDPath
	e.logger.Info("exported", "url", res.url, "title", rec.Title, "file", rec.MDPath, "count", r.summary.Exported)
	r.complete(ctx, entry)

	queued := 0
	for _, link := range res.page.Links {
		if !r.scheduler.Gate(link) {
			continue
		}
		if r.frontier.Push(link) {
			queued++
		}
	}
	e.logger.Debug("links", "url", res.url, "found", len(res.page.Links), "queued", queued)

	if r.summary.Exported%checkpointEvery == 0 {
		if err := r.saveSeen(); err != nil {
			e.logger.Warn("seen file checkpoint failed", "error", err)
		}
	}
	return nil
}

// complete records the final outcome of a dequeued URL.
func (r *run) complete(ctx context.Context, entry model.CrawlEntry) {
	e := r.engine
	r.summary.Count(entry.Outcome)
	e.metrics.ObserveOutcome(entry.Outcome)
	if entry.Outcome.IsGateRejection() {
		e.logger.Debug("rejected", "url", entry.URL, "outcome", entry.Outcome)
	}
	if err := e.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Warn("failed to record crawl", "url", entry.URL, "error", err)
	}
}

// saveSeen writes the visited set without URLs that were never fetched and,
// with RetryFailed, without URLs whose fetch failed.
func (r *run) saveSeen() error {
	visited := r.frontier.SnapshotVisited()
	kept := visited[:0]
	for _, u := range visited {
		if _, ok := r.inflight[u]; ok {
			continue
		}
		if _, ok := r.abandoned[u]; ok {
			continue
		}
		if r.engine.cfg.RetryFailed {
			if _, ok := r.failed[u]; ok {
				continue
			}
		}
		kept = append(kept, u)
	}
	return exporter.SaveSeen(r.exporter.SeenPath(), kept)
}

// finish persists the visited set, closes the exporter and fills in the
// terminal state.
func (r *run) finish(ctx context.Context, runErr error) (*model.RunSummary, error) {
	e := r.engine
	s := r.summary

	if err := r.saveSeen(); err != nil && runErr == nil {
		runErr = fmt.Errorf("%w: %w", ErrFatal, err)
	}
	if err := r.exporter.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("%w: %w", ErrFatal, err)
	}

	s.Pending = r.frontier.Len()
	s.FinishedAt = e.clock.Now()

	switch {
	case runErr != nil:
		s.State = model.RunStateAborted
		s.Error = runErr.Error()
		e.logger.Error("crawl aborted", "error", runErr)
	case ctx.Err() != nil:
		runErr = ctx.Err()
		s.State = model.RunStateAborted
		s.Error = runErr.Error()
		e.logger.Warn("crawl interrupted", "exported", s.Exported, "pending", s.Pending)
	default:
		s.State = model.RunStateCompleted
		e.logger.Info("crawl completed", "exported", s.Exported, "visited", s.Visited, "pending", s.Pending)
	}
	e.setState(s.State)

	if err := e.recorder.Finish(context.WithoutCancel(ctx), s); err != nil {
		e.logger.Warn("failed to record run", "error", err)
	}
	return s, runErr
}
