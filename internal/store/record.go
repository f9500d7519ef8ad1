// Package store provides durable keyed storage for note embedding
// records plus a derived, rebuildable index summary.
package store

import (
	"errors"
	"fmt"
	"time"
)

// SummaryVersion is the current serialization format of the index summary.
const SummaryVersion = 1

// Record holds one note's embedding and the metadata needed to decide
// whether it is stale.
type Record struct {
	// NoteID is the stable unique identifier of the note.
	NoteID string `json:"noteId"`

	// Path is the note's path at the time it was embedded. It may change
	// when the note is renamed.
	Path string `json:"path"`

	// Title is the display title of the note.
	Title string `json:"title"`

	// ContentHash is the algorithm-tagged digest of the note text the
	// vector was computed from.
	ContentHash string `json:"contentHash"`

	// Vector is the embedding itself.
	Vector []float32 `json:"vector"`

	// Model and Provider identify the embedding backend that produced
	// the vector.
	Model    string `json:"model"`
	Provider string `json:"provider"`

	// Dimensions must always equal len(Vector).
	Dimensions int `json:"dimensions"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the record invariants before it is persisted.
func (r *Record) Validate() error {
	if r.NoteID == "" {
		return errors.New("record note id is empty")
	}
	if r.Dimensions != len(r.Vector) {
		return fmt.Errorf("record dimensions %d do not match vector length %d", r.Dimensions, len(r.Vector))
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		return fmt.Errorf("record updatedAt %s precedes createdAt %s", r.UpdatedAt.Format(time.RFC3339), r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// IndexEntry is the lightweight projection of a record kept in the summary.
type IndexEntry struct {
	Path        string    `json:"path"`
	ContentHash string    `json:"contentHash"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Summary is the derived index over all stored records. It is a
// best-effort cache: it can always be rebuilt by scanning the records
// and must never be the sole source of truth.
type Summary struct {
	Version   int       `json:"version"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Model and Provider reflect the most recently indexed record. They
	// are a hint, not an integrity guarantee.
	Model    string `json:"model"`
	Provider string `json:"provider"`

	// Notes maps note id to its index entry. Total == len(Notes) always.
	Notes map[string]IndexEntry `json:"notes"`
}

// NewSummary returns an empty summary at the current format version.
func NewSummary() *Summary {
	return &Summary{
		Version:   SummaryVersion,
		UpdatedAt: time.Now().UTC(),
		Notes:     make(map[string]IndexEntry),
	}
}

// Patch updates the summary entry for a single known-fresh record.
func (s *Summary) Patch(r *Record) {
	if s.Notes == nil {
		s.Notes = make(map[string]IndexEntry)
	}
	s.Notes[r.NoteID] = IndexEntry{
		Path:        r.Path,
		ContentHash: r.ContentHash,
		UpdatedAt:   r.UpdatedAt,
	}
	s.Total = len(s.Notes)
	s.UpdatedAt = time.Now().UTC()
	s.Model = r.Model
	s.Provider = r.Provider
}

// Remove drops the summary entry for a note id, if present.
func (s *Summary) Remove(noteID string) {
	if s.Notes == nil {
		return
	}
	delete(s.Notes, noteID)
	s.Total = len(s.Notes)
	s.UpdatedAt = time.Now().UTC()
}

// clone returns a copy so callers cannot mutate the cached summary.
func (s *Summary) clone() *Summary {
	out := &Summary{
		Version:   s.Version,
		Total:     s.Total,
		UpdatedAt: s.UpdatedAt,
		Model:     s.Model,
		Provider:  s.Provider,
		Notes:     make(map[string]IndexEntry, len(s.Notes)),
	}
	for id, entry := range s.Notes {
		out.Notes[id] = entry
	}
	return out
}

// BuildSummary reconstructs a summary from a full record scan. Records
// are assumed to be in no particular order; the model/provider hint is
// taken from the most recently updated record.
func BuildSummary(records []*Record) *Summary {
	summary := NewSummary()
	var newest time.Time
	for _, r := range records {
		summary.Notes[r.NoteID] = IndexEntry{
			Path:        r.Path,
			ContentHash: r.ContentHash,
			UpdatedAt:   r.UpdatedAt,
		}
		if r.UpdatedAt.After(newest) {
			newest = r.UpdatedAt
			summary.Model = r.Model
			summary.Provider = r.Provider
		}
	}
	summary.Total = len(summary.Notes)
	return summary
}
