package frontier

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/nao1215/wikiexport/internal/model"
)

func TestFrontierFIFO(t *testing.T) {
	t.Parallel()

	f := New()
	urls := []model.CrawlURL{
		"https://wiki.example.org/wiki/A",
		"https://wiki.example.org/wiki/B",
		"https://wiki.example.org/wiki/C",
	}
	for _, u := range urls {
		if !f.Push(u) {
			t.Fatalf("Push(%q) = false, want true", u)
		}
	}
	if f.Len() != 3 {
		t.Errorf("Len() = %d, want 3", f.Len())
	}

	for _, want := range urls {
		got, ok := f.Pop()
		if !ok {
			t.Fatalf("Pop() returned empty, want %q", want)
		}
		if got != want {
			t.Errorf("Pop() = %q, want %q", got, want)
		}
	}

	if _, ok := f.Pop(); ok {
		t.Error("Pop() on empty frontier returned ok")
	}
}

func TestFrontierDedup(t *testing.T) {
	t.Parallel()

	f := New()
	u := model.CrawlURL("https://wiki.example.org/wiki/A")

	if !f.Push(u) {
		t.Fatal("first Push should succeed")
	}
	if f.Push(u) {
		t.Error("second Push of a queued URL should be a no-op")
	}

	got, ok := f.Pop()
	if !ok || got != u {
		t.Fatalf("Pop() = %q, %v", got, ok)
	}
	if visited := f.SnapshotVisited(); len(visited) != 1 || visited[0] != u {
		t.Errorf("SnapshotVisited() = %v, want popped URL", visited)
	}
	if f.Push(u) {
		t.Error("Push of a visited URL should be a no-op")
	}
	if _, ok := f.Pop(); ok {
		t.Error("URL was dequeued twice")
	}
}

func TestFrontierLoadVisited(t *testing.T) {
	t.Parallel()

	f := New()
	seen := model.CrawlURL("https://wiki.example.org/wiki/Old")
	f.LoadVisited([]model.CrawlURL{seen, ""})

	if f.Push(seen) {
		t.Error("Push of a seeded URL should be a no-op")
	}
	if f.Len() != 0 {
		t.Errorf("Len() = %d, want 0", f.Len())
	}
	if f.VisitedCount() != 1 {
		t.Errorf("VisitedCount() = %d, want 1", f.VisitedCount())
	}
}

func TestFrontierLoadVisitedAfterPush(t *testing.T) {
	t.Parallel()

	f := New()
	u := model.CrawlURL("https://wiki.example.org/wiki/A")
	f.Push(u)
	f.LoadVisited([]model.CrawlURL{u})

	if _, ok := f.Pop(); ok {
		t.Error("a queued URL that became visited must not be dequeued")
	}
}

func TestFrontierSnapshotSorted(t *testing.T) {
	t.Parallel()

	f := New()
	f.LoadVisited([]model.CrawlURL{"https://wiki.example.org/wiki/Z"})
	f.Push("https://wiki.example.org/wiki/M")
	f.Push("https://wiki.example.org/wiki/A")
	f.Pop()
	f.Pop()

	got := f.SnapshotVisited()
	want := []model.CrawlURL{
		"https://wiki.example.org/wiki/A",
		"https://wiki.example.org/wiki/M",
		"https://wiki.example.org/wiki/Z",
	}
	if !slices.Equal(got, want) {
		t.Errorf("SnapshotVisited() = %v, want %v", got, want)
	}
}

func TestFrontierConcurrentPop(t *testing.T) {
	t.Parallel()

	f := New()
	const n = 2000
	for i := range n {
		f.Push(model.CrawlURL(fmt.Sprintf("https://wiki.example.org/wiki/P%d", i)))
	}

	var (
		mu   sync.Mutex
		seen = make(map[model.CrawlURL]int)
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				u, ok := f.Pop()
				if !ok {
					return
				}
				// Concurrent rediscovery must not re-enqueue.
				f.Push(u)
				mu.Lock()
				seen[u]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("dequeued %d distinct URLs, want %d", len(seen), n)
	}
	for u, count := range seen {
		if count != 1 {
			t.Errorf("%q dequeued %d times", u, count)
		}
	}
}
