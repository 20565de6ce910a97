package frontier

import (
	"slices"
	"sync"

	"github.com/nao1215/wikiexport/internal/model"
)

// Frontier is a FIFO queue with deduplication. It is safe for concurrent use.
type Frontier struct {
	mu      sync.Mutex
	queue   []model.CrawlURL
	head    int
	queued  map[model.CrawlURL]struct{}
	visited map[model.CrawlURL]struct{}
}

// New creates an empty frontier.
func New() *Frontier {
	return &Frontier{
		queued:  make(map[model.CrawlURL]struct{}),
		visited: make(map[model.CrawlURL]struct{}),
	}
}

// Push appends u to the queue. It is a no-op and returns false when u has
// already been visited or is already queued.
func (f *Frontier) Push(u model.CrawlURL) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[u]; ok {
		return false
	}
	if _, ok := f.queued[u]; ok {
		return false
	}
	f.queued[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

// Pop dequeues the oldest pending URL and marks it visited.
// It returns false when the queue is empty.
func (f *Frontier) Pop() (model.CrawlURL, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.head < len(f.queue) {
		u := f.queue[f.head]
		f.queue[f.head] = ""
		f.head++
		delete(f.queued, u)

		if _, ok := f.visited[u]; ok {
			continue
		}
		f.visited[u] = struct{}{}
		f.compact()
		return u, true
	}

	f.queue = f.queue[:0]
	f.head = 0
	return "", false
}

// compact drops the consumed prefix once it dominates the backing array.
func (f *Frontier) compact() {
	if f.head < 1024 || f.head*2 < len(f.queue) {
		return
	}
	n := copy(f.queue, f.queue[f.head:])
	f.queue = f.queue[:n]
	f.head = 0
}

// LoadVisited seeds the visited set, typically from a previous run.
// Seeded URLs never enter the queue.
func (f *Frontier) LoadVisited(urls []model.CrawlURL) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range urls {
		if u == "" {
			continue
		}
		f.visited[u] = struct{}{}
	}
}

// SnapshotVisited returns the visited set as a sorted list.
func (f *Frontier) SnapshotVisited() []model.CrawlURL {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.CrawlURL, 0, len(f.visited))
	for u := range f.visited {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.queue) - f.head
}

// VisitedCount returns the size of the visited set.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.visited)
}
