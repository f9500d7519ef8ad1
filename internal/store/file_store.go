package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/semnotes/semnotes/internal/errortypes"
)

const (
	// indexFilename holds the serialized summary inside the base dir.
	indexFilename = "index.json"

	// recordsDirname holds one serialized record per note.
	recordsDirname = "embeddings"

	// conflictRetryDelay is how long to wait before retrying a write
	// that hit a create-time race with another process.
	conflictRetryDelay = 100 * time.Millisecond
)

// FileStore persists one JSON file per record under a base directory,
// plus a summary file. Another process syncing files into the same
// directory is tolerated: conflicting creates are retried once and
// treated as benign when the target demonstrably exists afterwards.
type FileStore struct {
	baseDir    string
	recordsDir string
	indexPath  string

	mu      sync.Mutex
	summary *Summary
}

// NewFileStore creates a file-backed store rooted at baseDir. Call
// Initialize before use.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{
		baseDir:    baseDir,
		recordsDir: filepath.Join(baseDir, recordsDirname),
		indexPath:  filepath.Join(baseDir, indexFilename),
	}
}

// Initialize creates the base and records directories. Idempotent.
func (s *FileStore) Initialize() error {
	if err := s.ensureDir(s.baseDir); err != nil {
		return err
	}
	return s.ensureDir(s.recordsDir)
}

// ensureDir creates dir, retrying once when another writer races the
// create. A conflict is success as long as the directory exists after.
func (s *FileStore) ensureDir(dir string) error {
	err := os.MkdirAll(dir, 0755)
	if err == nil {
		return nil
	}

	slog.Debug("Directory create failed, retrying once", "dir", dir, "error", err)
	time.Sleep(conflictRetryDelay)
	if err = os.MkdirAll(dir, 0755); err == nil {
		return nil
	}

	if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
		// Another writer created it.
		return nil
	}
	return errortypes.StorageConflictError(err, "failed to create storage directory").
		WithField("dir", dir)
}

// Close releases resources. The file store holds no open handles.
func (s *FileStore) Close() error {
	return nil
}

// safeFileName maps a note id to a filesystem-safe record filename.
func safeFileName(noteID string) string {
	var b strings.Builder
	for _, r := range noteID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String() + ".json"
}

func (s *FileStore) recordPath(noteID string) string {
	return filepath.Join(s.recordsDir, safeFileName(noteID))
}

// writeFile writes data, preferring a temp-file-and-rename. On failure
// it retries once after a short delay with a direct write, treating the
// first failure as a probable create-time race.
func (s *FileStore) writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err == nil {
		if err = os.Rename(tmp, path); err == nil {
			return nil
		}
		os.Remove(tmp)
	}

	time.Sleep(conflictRetryDelay)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errortypes.StorageConflictError(err, "failed to write storage file").
			WithField("path", path)
	}
	return nil
}

// Save writes or overwrites the record and patches the summary.
func (s *FileStore) Save(record *Record) error {
	if err := record.Validate(); err != nil {
		return errortypes.ValidationError(err, "refusing to save invalid record")
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errortypes.InternalError(err, "failed to serialize record").
			WithField("note_id", record.NoteID)
	}

	if err := s.writeFile(s.recordPath(record.NoteID), data); err != nil {
		return err
	}

	slog.Debug("Saved embedding record", "note_id", record.NoteID, "path", record.Path)
	return s.UpdateIndexEntry(record)
}

// SaveBatch saves records sequentially with no cross-record atomicity.
func (s *FileStore) SaveBatch(records []*Record) error {
	for _, record := range records {
		if err := s.Save(record); err != nil {
			return err
		}
	}
	return nil
}

// readRecord reads and parses one record file. A corrupt file is
// reported as absent, never as a fatal error.
func (s *FileStore) readRecord(path string) (*Record, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		slog.Warn("Skipping corrupt embedding record", "path", path, "error", err)
		return nil, false
	}
	return &record, true
}

// FindByID returns the record for the note id, or a NotFound error.
func (s *FileStore) FindByID(noteID string) (*Record, error) {
	record, ok := s.readRecord(s.recordPath(noteID))
	if !ok {
		return nil, errortypes.NotFoundError(fmt.Errorf("no embedding record for note %q", noteID), "record not found")
	}
	return record, nil
}

// FindByPath scans the summary mapping for a note at path. Callers
// needing repeated path lookups should cache the resolved id.
func (s *FileStore) FindByPath(path string) (*Record, error) {
	summary, err := s.Index()
	if err != nil {
		return nil, err
	}
	for noteID, entry := range summary.Notes {
		if entry.Path == path {
			return s.FindByID(noteID)
		}
	}
	return nil, errortypes.NotFoundError(fmt.Errorf("no embedding record for path %q", path), "record not found")
}

// FindAll returns every readable record, skipping corrupt files.
func (s *FileStore) FindAll() ([]*Record, error) {
	entries, err := os.ReadDir(s.recordsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errortypes.InternalError(err, "failed to list embedding records").
			WithField("dir", s.recordsDir)
	}

	records := make([]*Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if record, ok := s.readRecord(filepath.Join(s.recordsDir, entry.Name())); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// Delete removes the record. Deleting a missing id is not an error.
func (s *FileStore) Delete(noteID string) error {
	err := os.Remove(s.recordPath(noteID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errortypes.InternalError(err, "failed to delete embedding record").
			WithField("note_id", noteID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	summary, loadErr := s.loadSummaryLocked()
	if loadErr != nil {
		return loadErr
	}
	summary.Remove(noteID)
	return s.persistSummaryLocked(summary)
}

// Exists reports whether a record file exists for the note id.
func (s *FileStore) Exists(noteID string) (bool, error) {
	_, err := os.Stat(s.recordPath(noteID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errortypes.InternalError(err, "failed to stat embedding record").
		WithField("note_id", noteID)
}

// ContentHash returns the stored hash without materializing the vector.
// The summary projection is used when available; absent notes yield "".
func (s *FileStore) ContentHash(noteID string) (string, error) {
	summary, err := s.Index()
	if err != nil {
		return "", err
	}
	if entry, ok := summary.Notes[noteID]; ok {
		return entry.ContentHash, nil
	}
	// The summary may be stale relative to the record files.
	if record, ok := s.readRecord(s.recordPath(noteID)); ok {
		return record.ContentHash, nil
	}
	return "", nil
}

// UpdateIndexEntry patches the summary for one known-fresh record so a
// single-note embed does not force a full rebuild.
func (s *FileStore) UpdateIndexEntry(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, err := s.loadSummaryLocked()
	if err != nil {
		return err
	}
	summary.Patch(record)
	return s.persistSummaryLocked(summary)
}

// UpdateIndex rebuilds the summary from a full record scan. Used after
// batch operations and as a repair mechanism when records changed
// outside the normal API.
func (s *FileStore) UpdateIndex() error {
	records, err := s.FindAll()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	summary := BuildSummary(records)
	if err := s.persistSummaryLocked(summary); err != nil {
		return err
	}
	slog.Debug("Rebuilt index summary", "total", summary.Total)
	return nil
}

// Index returns the cached summary, loading it from disk on first use.
// A missing or corrupt summary file degrades to an empty summary.
func (s *FileStore) Index() (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, err := s.loadSummaryLocked()
	if err != nil {
		return nil, err
	}
	return summary.clone(), nil
}

// loadSummaryLocked returns the in-memory summary, reading it from disk
// when not cached. Callers must hold s.mu.
func (s *FileStore) loadSummaryLocked() (*Summary, error) {
	if s.summary != nil {
		return s.summary, nil
	}

	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Index summary unreadable, starting empty", "path", s.indexPath, "error", err)
		}
		s.summary = NewSummary()
		return s.summary, nil
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		// The summary is a rebuildable cache; corruption never blocks
		// the read/write paths.
		slog.Warn("Index summary corrupt, starting empty", "path", s.indexPath, "error", err)
		s.summary = NewSummary()
		return s.summary, nil
	}
	if summary.Notes == nil {
		summary.Notes = make(map[string]IndexEntry)
	}
	summary.Total = len(summary.Notes)
	s.summary = &summary
	return s.summary, nil
}

// persistSummaryLocked writes the summary to disk and updates the
// cache. Callers must hold s.mu.
func (s *FileStore) persistSummaryLocked(summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errortypes.InternalError(err, "failed to serialize index summary")
	}
	if err := s.writeFile(s.indexPath, data); err != nil {
		return err
	}
	s.summary = summary
	return nil
}

// Count returns the summary total.
func (s *FileStore) Count() (int, error) {
	summary, err := s.Index()
	if err != nil {
		return 0, err
	}
	return summary.Total, nil
}

// Clear deletes every record and resets the summary to empty.
func (s *FileStore) Clear() error {
	entries, err := os.ReadDir(s.recordsDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errortypes.InternalError(err, "failed to list embedding records").
			WithField("dir", s.recordsDir)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.recordsDir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errortypes.InternalError(err, "failed to delete embedding record").
				WithField("file", entry.Name())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistSummaryLocked(NewSummary())
}
