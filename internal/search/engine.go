// Package search implements brute-force cosine-similarity search over
// the stored embedding records.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/semnotes/semnotes/internal/errortypes"
	"github.com/semnotes/semnotes/internal/provider"
	"github.com/semnotes/semnotes/internal/store"
	"github.com/semnotes/semnotes/internal/telemetry"
	"github.com/semnotes/semnotes/internal/vector"
)

// Default query parameters
const (
	DefaultThreshold = 0.3
	DefaultLimit     = 10
)

// Options controls a similarity query. Zero values select the
// defaults; a negative Threshold keeps every candidate.
type Options struct {
	// Threshold is the minimum similarity for a result. When 0 the
	// default of 0.3 applies; pass a negative value to disable
	// filtering.
	Threshold float64

	// Limit caps the result count. When 0 the default of 10 applies.
	Limit int

	// ExcludedIDs removes specific notes from the candidate set before
	// scoring.
	ExcludedIDs []string

	// ExcludedFolders removes notes whose path falls under any of the
	// listed folder prefixes.
	ExcludedFolders []string
}

// Result is one scored search hit.
type Result struct {
	NoteID     string  `json:"noteId"`
	Path       string  `json:"path"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// Engine scores a query vector against every stored record. There is
// no approximate index; the scan is linear in record count.
type Engine struct {
	store    store.Store
	provider provider.Provider
	metrics  *telemetry.MetricsCollector
}

// NewEngine creates a search engine over the given store and provider.
func NewEngine(st store.Store, prov provider.Provider, metrics *telemetry.MetricsCollector) *Engine {
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}
	return &Engine{store: st, provider: prov, metrics: metrics}
}

// SearchByText embeds the query text and returns the most similar
// notes.
func (e *Engine) SearchByText(ctx context.Context, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errortypes.ValidationError(errors.New("empty query"), "search query must not be empty")
	}

	queryVec, err := e.provider.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.searchByVector(queryVec, opts)
}

// SearchByDocument uses a stored note's own embedding as the query and
// returns its nearest neighbors. The note itself is always excluded
// from the results.
func (e *Engine) SearchByDocument(ctx context.Context, noteID string, opts Options) ([]Result, error) {
	record, err := e.store.FindByID(noteID)
	if err != nil {
		return nil, err
	}

	opts.ExcludedIDs = append(append([]string{}, opts.ExcludedIDs...), noteID)
	return e.searchByVector(record.Vector, opts)
}

// searchByVector runs the scan: exclusion filters first, then scoring,
// threshold, descending sort, and the limit.
func (e *Engine) searchByVector(queryVec []float32, opts Options) ([]Result, error) {
	start := time.Now()
	defer func() {
		e.metrics.RecordTimer(telemetry.MetricSearchLatency, time.Since(start))
	}()

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	records, err := e.store.FindAll()
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(opts.ExcludedIDs))
	for _, id := range opts.ExcludedIDs {
		excluded[id] = struct{}{}
	}

	results := make([]Result, 0, limit)
	for _, record := range records {
		if _, skip := excluded[record.NoteID]; skip {
			continue
		}
		if folderExcluded(record.Path, opts.ExcludedFolders) {
			continue
		}

		similarity, simErr := vector.CosineSimilarity(queryVec, record.Vector)
		if simErr != nil {
			// A record embedded under a different model cannot be
			// scored against this query; leave it out. Re-embedding
			// under the current model clears this up.
			slog.Warn("Skipping record with incompatible vector",
				"note_id", record.NoteID, "path", record.Path, "error", simErr)
			continue
		}
		if similarity < threshold {
			continue
		}

		results = append(results, Result{
			NoteID:     record.NoteID,
			Path:       record.Path,
			Title:      record.Title,
			Similarity: similarity,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// folderExcluded reports whether path lies inside any of the folders.
// A folder matches the path exactly or as a directory prefix.
func folderExcluded(path string, folders []string) bool {
	for _, folder := range folders {
		folder = strings.TrimSuffix(folder, "/")
		if folder == "" {
			continue
		}
		if path == folder || strings.HasPrefix(path, folder+"/") {
			return true
		}
	}
	return false
}
