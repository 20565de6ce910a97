package model

import "time"

// CrawlEntry is the per-URL result of a run as kept in the crawl history.
type CrawlEntry struct {
	URL         CrawlURL  `json:"url"`
	Outcome     Outcome   `json:"outcome"`
	StatusCode  int       `json:"status_code,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Title       string    `json:"title,omitempty"`
	MDPath      string    `json:"md_path,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// RunRecord describes a past run stored in the crawl history.
type RunRecord struct {
	ID         int64     `json:"id"`
	StartURL   string    `json:"start_url"`
	State      string    `json:"state"`
	Exported   int       `json:"exported"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Outcomes counts the run's URLs by outcome. History listings fill it in.
	Outcomes map[Outcome]int `json:"outcomes,omitempty"`
}

// Visited returns the number of URLs the run dequeued.
func (r RunRecord) Visited() int {
	n := 0
	for _, c := range r.Outcomes {
		n += c
	}
	return n
}

// Finished reports whether the run reached a terminal state.
func (r RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}
