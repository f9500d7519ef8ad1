package watch

import (
	"context"
	"sync"
	"testing"
	"time"
)

// flushRecorder collects the batches the queue hands to its flush
// callback.
type flushRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *flushRecorder) flush(ctx context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := append([]string{}, paths...)
	r.batches = append(r.batches, batch)
	return nil
}

func (r *flushRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.batches))
	copy(out, r.batches)
	return out
}

func waitForBatches(t *testing.T, r *flushRecorder, want int) [][]string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if batches := r.snapshot(); len(batches) >= want {
			return batches
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d flushes, got %d", want, len(r.snapshot()))
	return nil
}

func TestQueueCoalescesRapidEdits(t *testing.T) {
	rec := &flushRecorder{}
	q := NewQueue(rec.flush, 30*time.Millisecond, nil, nil)
	defer q.Stop()

	q.Enqueue("a.md")
	q.Enqueue("a.md")
	q.Enqueue("a.md")

	batches := waitForBatches(t, rec, 1)
	if len(batches) != 1 {
		t.Fatalf("Expected one flush, got %d", len(batches))
	}
	if len(batches[0]) != 1 || batches[0][0] != "a.md" {
		t.Errorf("Expected a single coalesced path, got %v", batches[0])
	}
}

func TestQueueBatchesDistinctPaths(t *testing.T) {
	rec := &flushRecorder{}
	q := NewQueue(rec.flush, 30*time.Millisecond, nil, nil)
	defer q.Stop()

	q.Enqueue("b.md")
	q.Enqueue("a.md")
	q.Enqueue("b.md")

	batches := waitForBatches(t, rec, 1)
	if len(batches[0]) != 2 {
		t.Fatalf("Expected two distinct paths in one flush, got %v", batches[0])
	}
	// Drained batches come out sorted.
	if batches[0][0] != "a.md" || batches[0][1] != "b.md" {
		t.Errorf("Expected sorted batch, got %v", batches[0])
	}
}

func TestQueueTrailingEdgeDebounce(t *testing.T) {
	rec := &flushRecorder{}
	q := NewQueue(rec.flush, 60*time.Millisecond, nil, nil)
	defer q.Stop()

	q.Enqueue("a.md")
	time.Sleep(30 * time.Millisecond)
	if len(rec.snapshot()) != 0 {
		t.Fatal("Expected no flush before the debounce window elapsed")
	}

	// A second edit pushes the window out again.
	q.Enqueue("b.md")
	time.Sleep(40 * time.Millisecond)
	if len(rec.snapshot()) != 0 {
		t.Fatal("Expected the second edit to restart the debounce window")
	}

	batches := waitForBatches(t, rec, 1)
	if len(batches[0]) != 2 {
		t.Errorf("Expected both edits in the deferred flush, got %v", batches[0])
	}
}

func TestQueueSkipsExcludedFolders(t *testing.T) {
	rec := &flushRecorder{}
	q := NewQueue(rec.flush, 20*time.Millisecond, []string{"archive"}, nil)
	defer q.Stop()

	q.Enqueue("archive/old.md")
	q.Enqueue("keep.md")

	batches := waitForBatches(t, rec, 1)
	if len(batches[0]) != 1 || batches[0][0] != "keep.md" {
		t.Errorf("Expected the excluded path dropped, got %v", batches[0])
	}

	if q.Len() != 0 {
		t.Errorf("Expected empty queue after flush, got %d pending", q.Len())
	}
}

func TestQueueFlushesEditsArrivingMidRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	rec := &flushRecorder{}

	var q *Queue
	slowFlush := func(ctx context.Context, paths []string) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return rec.flush(ctx, paths)
	}
	q = NewQueue(slowFlush, 20*time.Millisecond, nil, nil)
	defer q.Stop()

	q.Enqueue("first.md")
	<-started

	// The first flush is still blocked; this edit must survive into a
	// follow-up run.
	q.Enqueue("second.md")
	close(release)

	batches := waitForBatches(t, rec, 2)
	if len(batches[0]) != 1 || batches[0][0] != "first.md" {
		t.Errorf("Expected the first flush to carry first.md, got %v", batches[0])
	}
	if len(batches[1]) != 1 || batches[1][0] != "second.md" {
		t.Errorf("Expected the follow-up flush to carry second.md, got %v", batches[1])
	}
}

func TestQueueStop(t *testing.T) {
	rec := &flushRecorder{}
	q := NewQueue(rec.flush, 20*time.Millisecond, nil, nil)

	q.Enqueue("a.md")
	q.Stop()

	time.Sleep(60 * time.Millisecond)
	if len(rec.snapshot()) != 0 {
		t.Error("Expected no flush after Stop")
	}

	q.Enqueue("b.md")
	if q.Len() != 0 {
		t.Error("Expected Enqueue to be a no-op after Stop")
	}
}
