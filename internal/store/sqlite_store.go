package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"crawshaw.io/sqlite"

	"github.com/semnotes/semnotes/internal/errortypes"
	"github.com/semnotes/semnotes/internal/vector"
)

// SQLiteStore is a Store implementation backed by a single SQLite file.
// It keeps the same summary semantics as the file store: the summary is
// a derived cache rebuilt from the embeddings table on demand.
type SQLiteStore struct {
	dbPath string

	mu      sync.Mutex
	conn    *sqlite.Conn
	summary *Summary
}

// NewSQLiteStore creates a SQLite-backed store at dbPath. Call
// Initialize before use.
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{dbPath: dbPath}
}

// Initialize opens the database and creates the embeddings table.
// Idempotent; the table create tolerates an existing table.
func (s *SQLiteStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	conn, err := sqlite.OpenConn(s.dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return errortypes.InternalError(err, "failed to open SQLite database").
			WithField("path", s.dbPath)
	}
	s.conn = conn

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS embeddings (
		note_id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		title TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		vector BLOB NOT NULL,
		model TEXT NOT NULL,
		provider TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`

	stmt, err := conn.Prepare(createTableSQL)
	if err != nil {
		conn.Close()
		s.conn = nil
		return errortypes.InternalError(err, "failed to prepare create table statement")
	}
	defer stmt.Reset()

	if _, err = stmt.Step(); err != nil {
		conn.Close()
		s.conn = nil
		return errortypes.InternalError(err, "failed to create embeddings table")
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// Save writes or overwrites the record and patches the summary cache.
func (s *SQLiteStore) Save(record *Record) error {
	if err := record.Validate(); err != nil {
		return errortypes.ValidationError(err, "refusing to save invalid record")
	}

	blob, err := vector.Float32SliceToBytes(record.Vector)
	if err != nil {
		return errortypes.InternalError(err, "failed to encode vector").
			WithField("note_id", record.NoteID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	insertSQL := `
	INSERT OR REPLACE INTO embeddings
		(note_id, path, title, content_hash, vector, model, provider, dimensions, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	stmt, err := s.conn.Prepare(insertSQL)
	if err != nil {
		return errortypes.InternalError(err, "failed to prepare insert statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, record.NoteID)
	stmt.BindText(2, record.Path)
	stmt.BindText(3, record.Title)
	stmt.BindText(4, record.ContentHash)
	stmt.BindBytes(5, blob)
	stmt.BindText(6, record.Model)
	stmt.BindText(7, record.Provider)
	stmt.BindInt64(8, int64(record.Dimensions))
	stmt.BindText(9, record.CreatedAt.UTC().Format(time.RFC3339Nano))
	stmt.BindText(10, record.UpdatedAt.UTC().Format(time.RFC3339Nano))

	if _, err = stmt.Step(); err != nil {
		return errortypes.InternalError(err, "failed to insert embedding record").
			WithField("note_id", record.NoteID)
	}

	if s.summary != nil {
		s.summary.Patch(record)
	}
	slog.Debug("Saved embedding record", "note_id", record.NoteID, "path", record.Path)
	return nil
}

// SaveBatch saves records sequentially with no cross-record atomicity.
func (s *SQLiteStore) SaveBatch(records []*Record) error {
	for _, record := range records {
		if err := s.Save(record); err != nil {
			return err
		}
	}
	return nil
}

// scanRecord reads the record columns of the current row. A row whose
// vector or timestamps fail to parse is reported as absent.
func scanRecord(stmt *sqlite.Stmt) (*Record, bool) {
	blobLen := stmt.ColumnLen(4)
	blob := make([]byte, blobLen)
	stmt.ColumnBytes(4, blob)

	vec, err := vector.BytesToFloat32Slice(blob)
	if err != nil {
		slog.Warn("Skipping embedding row with corrupt vector", "note_id", stmt.ColumnText(0), "error", err)
		return nil, false
	}

	createdAt, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(8))
	if err != nil {
		slog.Warn("Skipping embedding row with corrupt created_at", "note_id", stmt.ColumnText(0), "error", err)
		return nil, false
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(9))
	if err != nil {
		slog.Warn("Skipping embedding row with corrupt updated_at", "note_id", stmt.ColumnText(0), "error", err)
		return nil, false
	}

	return &Record{
		NoteID:      stmt.ColumnText(0),
		Path:        stmt.ColumnText(1),
		Title:       stmt.ColumnText(2),
		ContentHash: stmt.ColumnText(3),
		Vector:      vec,
		Model:       stmt.ColumnText(5),
		Provider:    stmt.ColumnText(6),
		Dimensions:  int(stmt.ColumnInt64(7)),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, true
}

const selectColumns = `note_id, path, title, content_hash, vector, model, provider, dimensions, created_at, updated_at`

// FindByID returns the record for the note id, or a NotFound error.
func (s *SQLiteStore) FindByID(noteID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`SELECT ` + selectColumns + ` FROM embeddings WHERE note_id = ?;`)
	if err != nil {
		return nil, errortypes.InternalError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()
	stmt.BindText(1, noteID)

	hasRow, err := stmt.Step()
	if err != nil {
		return nil, errortypes.InternalError(err, "failed to query embedding record").
			WithField("note_id", noteID)
	}
	if !hasRow {
		return nil, errortypes.NotFoundError(fmt.Errorf("no embedding record for note %q", noteID), "record not found")
	}
	record, ok := scanRecord(stmt)
	if !ok {
		return nil, errortypes.NotFoundError(fmt.Errorf("embedding record for note %q is unreadable", noteID), "record not found")
	}
	return record, nil
}

// FindByPath scans the summary mapping for a note at path.
func (s *SQLiteStore) FindByPath(path string) (*Record, error) {
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

// FindAll returns every readable record, skipping corrupt rows.
func (s *SQLiteStore) FindAll() ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findAllLocked()
}

func (s *SQLiteStore) findAllLocked() ([]*Record, error) {
	stmt, err := s.conn.Prepare(`SELECT ` + selectColumns + ` FROM embeddings;`)
	if err != nil {
		return nil, errortypes.InternalError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	var records []*Record
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, errortypes.InternalError(err, "failed to scan embedding records")
		}
		if !hasRow {
			break
		}
		if record, ok := scanRecord(stmt); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// Delete removes the record. Deleting a missing id is not an error.
func (s *SQLiteStore) Delete(noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`DELETE FROM embeddings WHERE note_id = ?;`)
	if err != nil {
		return errortypes.InternalError(err, "failed to prepare delete statement")
	}
	defer stmt.Reset()
	stmt.BindText(1, noteID)

	if _, err = stmt.Step(); err != nil {
		return errortypes.InternalError(err, "failed to delete embedding record").
			WithField("note_id", noteID)
	}
	if s.summary != nil {
		s.summary.Remove(noteID)
	}
	return nil
}

// Exists reports whether a record exists for the note id.
func (s *SQLiteStore) Exists(noteID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`SELECT 1 FROM embeddings WHERE note_id = ?;`)
	if err != nil {
		return false, errortypes.InternalError(err, "failed to prepare exists statement")
	}
	defer stmt.Reset()
	stmt.BindText(1, noteID)

	hasRow, err := stmt.Step()
	if err != nil {
		return false, errortypes.InternalError(err, "failed to query embedding record").
			WithField("note_id", noteID)
	}
	return hasRow, nil
}

// ContentHash returns the stored hash without materializing the vector.
func (s *SQLiteStore) ContentHash(noteID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`SELECT content_hash FROM embeddings WHERE note_id = ?;`)
	if err != nil {
		return "", errortypes.InternalError(err, "failed to prepare hash statement")
	}
	defer stmt.Reset()
	stmt.BindText(1, noteID)

	hasRow, err := stmt.Step()
	if err != nil {
		return "", errortypes.InternalError(err, "failed to query content hash").
			WithField("note_id", noteID)
	}
	if !hasRow {
		return "", nil
	}
	return stmt.ColumnText(0), nil
}

// UpdateIndexEntry patches the summary cache for one record.
func (s *SQLiteStore) UpdateIndexEntry(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		// No cache yet; the next Index call rebuilds from the table.
		return nil
	}
	s.summary.Patch(record)
	return nil
}

// UpdateIndex rebuilds the summary cache from a full table scan.
func (s *SQLiteStore) UpdateIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.findAllLocked()
	if err != nil {
		return err
	}
	s.summary = BuildSummary(records)
	slog.Debug("Rebuilt index summary", "total", s.summary.Total)
	return nil
}

// Index returns the summary, rebuilding the cache from the table when
// none is held in memory.
func (s *SQLiteStore) Index() (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.summary == nil {
		records, err := s.findAllLocked()
		if err != nil {
			return nil, err
		}
		s.summary = BuildSummary(records)
	}
	return s.summary.clone(), nil
}

// Count returns the summary total.
func (s *SQLiteStore) Count() (int, error) {
	summary, err := s.Index()
	if err != nil {
		return 0, err
	}
	return summary.Total, nil
}

// Clear deletes every record and resets the summary to empty.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`DELETE FROM embeddings;`)
	if err != nil {
		return errortypes.InternalError(err, "failed to prepare clear statement")
	}
	defer stmt.Reset()

	if _, err = stmt.Step(); err != nil {
		return errortypes.InternalError(err, "failed to clear embedding records")
	}
	s.summary = NewSummary()
	return nil
}
