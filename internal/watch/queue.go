// Package watch provides an edit-coalescing queue that batches rapid
// note edits into a single deferred synchronization run.
package watch

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/semnotes/semnotes/internal/errortypes"
	"github.com/semnotes/semnotes/internal/notes"
	"github.com/semnotes/semnotes/internal/telemetry"
)

// DefaultDebounce is the quiet period the queue waits for after the
// last enqueued edit before flushing.
const DefaultDebounce = 2 * time.Second

// FlushFunc processes one drained batch of note paths. Errors are
// logged by the queue, never propagated back to the editor.
type FlushFunc func(ctx context.Context, paths []string) error

// Queue coalesces edit notifications by path. Repeated edits to the
// same path within the debounce window collapse into one entry, and
// each new edit pushes the flush out (trailing-edge debounce). At most
// one flush runs at a time; edits arriving mid-flush are collected and
// trigger a follow-up flush.
type Queue struct {
	flush    FlushFunc
	debounce time.Duration
	excluded []string
	metrics  *telemetry.MetricsCollector

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	running bool
	rearm   bool
	stopped bool
}

// NewQueue creates a queue that invokes flush after the debounce
// period of quiet. Paths under an excluded folder are dropped on
// enqueue.
func NewQueue(flush FlushFunc, debounce time.Duration, excludedFolders []string, metrics *telemetry.MetricsCollector) *Queue {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}
	return &Queue{
		flush:    flush,
		debounce: debounce,
		excluded: excludedFolders,
		metrics:  metrics,
		pending:  make(map[string]struct{}),
	}
}

// Enqueue registers an edit to path and restarts the debounce window.
func (q *Queue) Enqueue(path string) {
	path = notes.NormalizePath(path)
	if notes.PathExcluded(path, q.excluded) {
		slog.Debug("Ignoring edit in excluded folder", "path", path)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}

	if _, dup := q.pending[path]; dup {
		q.metrics.IncrementCounter(telemetry.MetricQueueCoalesce, 1)
	}
	q.pending[path] = struct{}{}

	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.debounce, q.fire)
}

// Len reports the number of distinct paths waiting to be flushed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stop cancels any armed timer and drops pending entries. Enqueue
// becomes a no-op afterwards; an in-flight flush is allowed to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.pending = make(map[string]struct{})
}

// fire runs when the debounce timer expires. If a flush is already in
// progress it only marks the queue for a follow-up run.
func (q *Queue) fire() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	if q.running {
		q.rearm = true
		q.mu.Unlock()
		return
	}

	paths := q.drainLocked()
	if len(paths) == 0 {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	q.run(paths)
}

// run executes the flush and immediately re-fires when edits piled up
// during the run.
func (q *Queue) run(paths []string) {
	q.metrics.IncrementCounter(telemetry.MetricQueueFlushes, 1)
	slog.Debug("Flushing edit queue", "paths", len(paths))

	if err := q.flush(context.Background(), paths); err != nil {
		errortypes.LogError(nil, errortypes.InternalError(err, "edit queue flush failed").
			WithField("paths", len(paths)))
	}

	q.mu.Lock()
	again := q.rearm || len(q.pending) > 0
	q.rearm = false
	var next []string
	if again && !q.stopped {
		next = q.drainLocked()
	}
	if len(next) == 0 {
		q.running = false
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	q.run(next)
}

// drainLocked empties the pending set. Callers must hold mu.
func (q *Queue) drainLocked() []string {
	paths := make([]string, 0, len(q.pending))
	for path := range q.pending {
		paths = append(paths, path)
	}
	q.pending = make(map[string]struct{})
	sort.Strings(paths)
	return paths
}
