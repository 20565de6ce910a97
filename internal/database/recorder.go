package database

import (
	"context"
	"sync"
	"time"

	"github.com/nao1215/wikiexport/internal/model"
)

// Recorder writes the history of a single run. It is safe for concurrent use.
type Recorder struct {
	cdb *CrawlDB

	mu    sync.Mutex
	runID int64
}

// NewRecorder returns a Recorder backed by cdb.
func NewRecorder(cdb *CrawlDB) *Recorder {
	return &Recorder{cdb: cdb}
}

// Begin starts a new run.
func (r *Recorder) Begin(ctx context.Context, startURL string, startedAt time.Time) error {
	id, err := r.cdb.StartRun(ctx, startURL, startedAt)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.runID = id
	r.mu.Unlock()
	return nil
}

// Record stores the outcome of one URL in the active run.
func (r *Recorder) Record(ctx context.Context, entry model.CrawlEntry) error {
	id := r.RunID()
	if id == 0 {
		return ErrRunNotStarted
	}
	return r.cdb.RecordCrawl(ctx, id, entry)
}

// Finish stores the terminal state of the active run.
func (r *Recorder) Finish(ctx context.Context, summary *model.RunSummary) error {
	id := r.RunID()
	if id == 0 {
		return ErrRunNotStarted
	}
	return r.cdb.FinishRun(ctx, id, summary)
}

// RunID returns the active run ID, or 0 before Begin.
func (r *Recorder) RunID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}
