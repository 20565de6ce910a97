package politeness

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/wikiexport/internal/model"
	"github.com/nao1215/wikiexport/internal/robots"
)

// Scope describes which URLs belong to the crawl.
type Scope struct {
	// Origin is "scheme://host[:port]" of the start URL.
	Origin string

	// PathPrefix restricts crawling to paths that start with it.
	// An empty prefix accepts every path.
	PathPrefix string

	// ExcludePatterns rejects URLs containing any of these substrings.
	ExcludePatterns []string

	// UserAgent is matched against robots.txt groups.
	UserAgent string

	// HonorRobots enables robots.txt checks.
	HonorRobots bool

	// Robots is the loaded policy. A nil policy allows everything.
	Robots *robots.Policy
}

// Scheduler gates URLs and paces requests. It is safe for concurrent use.
type Scheduler struct {
	scope   Scope
	delay   time.Duration
	clock   Clock
	limiter *rate.Limiter

	mu        sync.Mutex
	lastDone  time.Time
	lastStart time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for pacing.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewScheduler creates a scheduler for scope with the given minimum delay.
func NewScheduler(scope Scope, delay time.Duration, opts ...Option) *Scheduler {
	if delay < 0 {
		delay = 0
	}
	scope.Origin = strings.ToLower(strings.TrimRight(scope.Origin, "/"))

	s := &Scheduler{
		scope: scope,
		delay: delay,
		clock: SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	s.limiter = rate.NewLimiter(limit, 1)
	return s
}

// Delay returns the effective minimum delay.
func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// Gate reports whether u may be fetched.
func (s *Scheduler) Gate(u model.CrawlURL) bool {
	_, ok := s.Classify(u)
	return ok
}

// Classify returns the rejection outcome for u, or ok=true if u is in scope.
// Checks run in order: origin, path prefix, exclude patterns, robots.
func (s *Scheduler) Classify(u model.CrawlURL) (model.Outcome, bool) {
	parsed, err := u.Parse()
	if err != nil || model.OriginOf(parsed) != s.scope.Origin {
		return model.OutcomeOffOrigin, false
	}

	if prefix := s.scope.PathPrefix; prefix != "" {
		if !strings.HasPrefix(parsed.Path, prefix) && !strings.HasPrefix(parsed.EscapedPath(), prefix) {
			return model.OutcomeOutsidePrefix, false
		}
	}

	raw := u.String()
	for _, pattern := range s.scope.ExcludePatterns {
		if pattern != "" && strings.Contains(raw, pattern) {
			return model.OutcomeExcluded, false
		}
	}

	if s.scope.HonorRobots && !s.scope.Robots.IsAllowed(s.scope.UserAgent, raw) {
		return model.OutcomeRobotsDisallowed, false
	}

	return model.OutcomeExported, true
}

// WaitForSlot blocks until the caller may start a request.
//
// Consecutive request starts are at least delay apart across all callers,
// and no request starts earlier than delay after the last Done.
func (s *Scheduler) WaitForSlot(ctx context.Context) error {
	s.mu.Lock()
	now := s.clock.Now()

	at := now
	for _, last := range []time.Time{s.lastDone, s.lastStart} {
		if last.IsZero() {
			continue
		}
		if floor := last.Add(s.delay); floor.After(at) {
			at = floor
		}
	}

	r := s.limiter.ReserveN(at, 1)
	start := at.Add(r.DelayFrom(at))
	s.lastStart = start
	s.mu.Unlock()

	return s.clock.Sleep(ctx, start.Sub(now))
}

// Done records that a request finished.
func (s *Scheduler) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if now.After(s.lastDone) {
		s.lastDone = now
	}
}
