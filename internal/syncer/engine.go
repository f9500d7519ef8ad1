// Package syncer decides, per note, whether its stored embedding is
// fresh, stale, or absent, and orchestrates single-note and
// whole-collection re-embedding.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/semnotes/semnotes/internal/errortypes"
	"github.com/semnotes/semnotes/internal/hash"
	"github.com/semnotes/semnotes/internal/notes"
	"github.com/semnotes/semnotes/internal/provider"
	"github.com/semnotes/semnotes/internal/store"
	"github.com/semnotes/semnotes/internal/telemetry"
)

// Embed reasons
const (
	// ReasonNew means no record existed for the note.
	ReasonNew = "new"

	// ReasonStale means the record existed but its content hash or
	// provider/model no longer matched.
	ReasonStale = "stale"

	// ReasonSkipped means the existing record was still fresh.
	ReasonSkipped = "skipped"
)

// ErrBatchInProgress is returned when a batch is requested while
// another batch from the same engine is still running.
var ErrBatchInProgress = errors.New("a batch operation is already in progress")

// Result is the outcome of a single-note synchronization.
type Result struct {
	Record     *store.Record
	WasUpdated bool
	Reason     string
}

// Engine coordinates the document source, embedding provider, and
// store. One engine processes synchronization work sequentially: there
// is at most one in-flight provider call per engine instance.
type Engine struct {
	source   notes.Source
	store    store.Store
	provider provider.Provider
	metrics  *telemetry.MetricsCollector

	// batchMu enforces the single-flight guarantee on batch runs.
	batchMu sync.Mutex
}

// NewEngine creates a synchronization engine over the given
// collaborators.
func NewEngine(source notes.Source, st store.Store, prov provider.Provider, metrics *telemetry.MetricsCollector) *Engine {
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}
	return &Engine{
		source:   source,
		store:    st,
		provider: prov,
		metrics:  metrics,
	}
}

// EmbedOne resolves the note by id and synchronizes its embedding,
// calling the provider only when the stored embedding is stale or
// absent.
func (e *Engine) EmbedOne(ctx context.Context, noteID string) (*Result, error) {
	note, err := e.source.FindByID(noteID)
	if err != nil {
		return nil, err
	}
	return e.EmbedNote(ctx, note)
}

// EmbedNote synchronizes the embedding for an already-resolved note.
func (e *Engine) EmbedNote(ctx context.Context, note *notes.Note) (*Result, error) {
	currentHash := hash.Content(note.Content)

	storedHash, err := e.store.ContentHash(note.ID)
	if err != nil {
		return nil, err
	}

	var existing *store.Record
	if storedHash != "" || e.recordExists(note.ID) {
		if rec, findErr := e.store.FindByID(note.ID); findErr == nil {
			existing = rec
		}
	}

	if hash.Equal(storedHash, currentHash) && existing != nil &&
		existing.Provider == e.provider.Name() && existing.Model == e.provider.Model() {
		slog.Debug("Embedding is fresh, skipping", "note_id", note.ID, "path", note.Path)
		e.metrics.IncrementCounter(telemetry.MetricEmbedsSkipped, 1)
		return &Result{Record: existing, WasUpdated: false, Reason: ReasonSkipped}, nil
	}

	reason := ReasonNew
	if existing != nil {
		reason = ReasonStale
	}

	record, err := e.embed(ctx, note, currentHash, existing)
	if err != nil {
		return nil, err
	}

	if reason == ReasonNew {
		e.metrics.IncrementCounter(telemetry.MetricEmbedsNew, 1)
	} else {
		e.metrics.IncrementCounter(telemetry.MetricEmbedsStale, 1)
	}
	return &Result{Record: record, WasUpdated: true, Reason: reason}, nil
}

// EmbedIfStale short-circuits without touching the provider when the
// supplied hash already matches storage. Callers that computed the hash
// once use this to avoid a duplicate note resolve.
func (e *Engine) EmbedIfStale(ctx context.Context, noteID, currentHash string) (*Result, error) {
	storedHash, err := e.store.ContentHash(noteID)
	if err != nil {
		return nil, err
	}
	if hash.Equal(storedHash, currentHash) {
		if existing, findErr := e.store.FindByID(noteID); findErr == nil {
			e.metrics.IncrementCounter(telemetry.MetricEmbedsSkipped, 1)
			return &Result{Record: existing, WasUpdated: false, Reason: ReasonSkipped}, nil
		}
	}
	return e.EmbedOne(ctx, noteID)
}

// ForceEmbed bypasses the staleness check entirely: it always calls the
// provider and overwrites the stored record.
func (e *Engine) ForceEmbed(ctx context.Context, noteID string) (*Result, error) {
	note, err := e.source.FindByID(noteID)
	if err != nil {
		return nil, err
	}

	reason := ReasonNew
	var existing *store.Record
	if rec, findErr := e.store.FindByID(note.ID); findErr == nil {
		existing = rec
		reason = ReasonStale
	}

	record, err := e.embed(ctx, note, hash.Content(note.Content), existing)
	if err != nil {
		return nil, err
	}
	return &Result{Record: record, WasUpdated: true, Reason: reason}, nil
}

// embed calls the provider and persists a record for the note. The
// creation timestamp of an existing record is preserved; only a first
// creation stamps a fresh one.
func (e *Engine) embed(ctx context.Context, note *notes.Note, contentHash string, existing *store.Record) (*store.Record, error) {
	start := time.Now()
	vec, err := e.provider.Embed(ctx, note.Content)
	e.metrics.RecordTimer(telemetry.MetricProviderLatency, time.Since(start))
	if err != nil {
		e.metrics.IncrementCounter(telemetry.MetricProviderCallsFailure, 1)
		return nil, err
	}
	e.metrics.IncrementCounter(telemetry.MetricProviderCallsSuccess, 1)
	e.metrics.IncrementCounter(telemetry.ProviderCallMetric(e.provider.Name()), 1)

	now := time.Now().UTC()
	createdAt := now
	if existing != nil {
		createdAt = existing.CreatedAt
	}

	record := &store.Record{
		NoteID:      note.ID,
		Path:        note.Path,
		Title:       note.Title,
		ContentHash: contentHash,
		Vector:      vec,
		Model:       e.provider.Model(),
		Provider:    e.provider.Name(),
		Dimensions:  len(vec),
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}

	if err := e.store.Save(record); err != nil {
		return nil, err
	}
	slog.Debug("Embedded note", "note_id", note.ID, "path", note.Path, "dimensions", len(vec))
	return record, nil
}

// recordExists checks the store, treating lookup failures as absence.
func (e *Engine) recordExists(noteID string) bool {
	exists, err := e.store.Exists(noteID)
	return err == nil && exists
}

// EmbedAll synchronizes every note outside the excluded folders, using
// the full staleness check (content hash plus provider/model). Notes
// are processed sequentially in source-enumeration order; per-note
// failures are counted and logged but never abort the batch.
func (e *Engine) EmbedAll(ctx context.Context, excludedFolders []string, onProgress ProgressFunc) (*BatchResult, error) {
	return e.runBatch(ctx, excludedFolders, onProgress, func(ctx context.Context, note *notes.Note) (*Result, error) {
		return e.EmbedNote(ctx, note)
	})
}

// EmbedStale is the cheap sync pass: it re-embeds only notes whose
// content hash changed, deliberately ignoring provider/model drift.
func (e *Engine) EmbedStale(ctx context.Context, excludedFolders []string, onProgress ProgressFunc) (*BatchResult, error) {
	return e.runBatch(ctx, excludedFolders, onProgress, func(ctx context.Context, note *notes.Note) (*Result, error) {
		currentHash := hash.Content(note.Content)
		storedHash, err := e.store.ContentHash(note.ID)
		if err != nil {
			return nil, err
		}
		var existing *store.Record
		if storedHash != "" {
			if rec, findErr := e.store.FindByID(note.ID); findErr == nil {
				existing = rec
			}
		}
		if hash.Equal(storedHash, currentHash) && existing != nil {
			e.metrics.IncrementCounter(telemetry.MetricEmbedsSkipped, 1)
			return &Result{Record: existing, WasUpdated: false, Reason: ReasonSkipped}, nil
		}
		record, err := e.embed(ctx, note, currentHash, existing)
		if err != nil {
			return nil, err
		}
		reason := ReasonNew
		if existing != nil {
			reason = ReasonStale
		}
		return &Result{Record: record, WasUpdated: true, Reason: reason}, nil
	})
}

// runBatch drives one sequential pass over the collection. Only one
// batch may run per engine at a time.
func (e *Engine) runBatch(ctx context.Context, excludedFolders []string, onProgress ProgressFunc, process func(context.Context, *notes.Note) (*Result, error)) (*BatchResult, error) {
	if !e.batchMu.TryLock() {
		return nil, ErrBatchInProgress
	}
	defer e.batchMu.Unlock()

	allNotes, err := e.source.FindAllExcluding(excludedFolders)
	if err != nil {
		return nil, err
	}

	progress := Progress{Total: len(allNotes)}
	report := func() {
		if onProgress != nil {
			onProgress(progress)
		}
	}

	for _, note := range allNotes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		progress.Current = note.Title
		report()

		result, procErr := process(ctx, note)
		if procErr != nil {
			progress.Failed++
			e.metrics.IncrementCounter(telemetry.MetricEmbedsFailed, 1)
			errortypes.LogError(nil, errortypes.ProviderCallError(procErr, "failed to embed note during batch").
				WithField("note_id", note.ID).
				WithField("path", note.Path))
			continue
		}

		progress.Completed++
		if result.Reason == ReasonSkipped {
			progress.Skipped++
		}
	}

	// Many records may have changed; rebuild rather than trusting the
	// incremental patches.
	if err := e.store.UpdateIndex(); err != nil {
		return nil, err
	}
	e.metrics.IncrementCounter(telemetry.MetricIndexRebuilds, 1)
	e.metrics.RecordTimestamp(telemetry.MetricLastSync)
	if count, countErr := e.store.Count(); countErr == nil {
		e.metrics.SetGauge(telemetry.MetricIndexSize, float64(count))
	}

	progress.Current = ""
	report()

	slog.Info("Batch synchronization complete",
		"total", progress.Total,
		"success", progress.Completed-progress.Skipped,
		"skipped", progress.Skipped,
		"failed", progress.Failed)

	return &BatchResult{
		Success: progress.Completed - progress.Skipped,
		Skipped: progress.Skipped,
		Failed:  progress.Failed,
	}, nil
}

// Metrics returns the engine's metrics collector.
func (e *Engine) Metrics() *telemetry.MetricsCollector {
	return e.metrics
}

// String implements fmt.Stringer for logging.
func (e *Engine) String() string {
	return fmt.Sprintf("syncer.Engine(provider=%s, model=%s)", e.provider.Name(), e.provider.Model())
}
