package model

import (
	"time"
)

// RunState is the state of a crawl run.
// A run moves Idle -> Running -> {Completed, Aborted}.
type RunState int

const (
	// RunStateIdle is the state before Run is called.
	RunStateIdle RunState = iota

	// RunStateRunning is the state while the crawl loop executes.
	RunStateRunning

	// RunStateCompleted means the frontier emptied or the page budget was reached.
	RunStateCompleted

	// RunStateAborted means a process-level fatal condition or cancellation
	// stopped the run.
	RunStateAborted
)

// String returns a human-readable representation of the run state.
func (s RunState) String() string {
	switch s {
	case RunStateIdle:
		return "idle"
	case RunStateRunning:
		return "running"
	case RunStateCompleted:
		return "completed"
	case RunStateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DelaySource tells where the effective politeness delay came from.
type DelaySource string

const (
	// DelaySourceDefault is the built-in one second delay.
	DelaySourceDefault DelaySource = "default"

	// DelaySourceOverride is an explicit delay from the configuration.
	DelaySourceOverride DelaySource = "override"

	// DelaySourceRobots is the Crawl-delay directive from robots.txt.
	DelaySourceRobots DelaySource = "robots"
)

// RunSummary is reported when a crawl finishes.
type RunSummary struct {
	// StartURL is the normalized start URL.
	StartURL string `json:"start_url"`

	// State is the terminal state of the run.
	State RunState `json:"state"`

	// Error is the fatal error message for aborted runs.
	Error string `json:"error,omitempty"`

	// Exported is the number of pages exported in this run.
	Exported int `json:"exported"`

	// Visited is the number of URLs dequeued in this run.
	Visited int `json:"visited"`

	// Pending is the number of URLs left in the frontier.
	Pending int `json:"pending"`

	// Outcomes counts dequeued URLs by outcome.
	Outcomes map[Outcome]int `json:"outcomes"`

	// Delay is the effective minimum delay between requests.
	Delay time.Duration `json:"delay"`

	// DelaySource tells where Delay came from.
	DelaySource DelaySource `json:"delay_source"`

	// OutDir, PagesDir, ManifestPath and SeenPath locate the output.
	OutDir       string `json:"out_dir"`
	PagesDir     string `json:"pages_dir"`
	ManifestPath string `json:"manifest_path"`
	SeenPath     string `json:"seen_path"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRunSummary creates an empty summary for the given start URL.
func NewRunSummary(startURL string) *RunSummary {
	return &RunSummary{
		StartURL: startURL,
		State:    RunStateIdle,
		Outcomes: make(map[Outcome]int),
	}
}

// Count increments the counter for an outcome.
func (s *RunSummary) Count(o Outcome) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[Outcome]int)
	}
	s.Outcomes[o]++
}

// Skipped returns the number of dequeued URLs that were not exported.
func (s *RunSummary) Skipped() int {
	total := 0
	for o, n := range s.Outcomes {
		if o != OutcomeExported {
			total += n
		}
	}
	return total
}

// Elapsed returns the run duration.
func (s *RunSummary) Elapsed() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
