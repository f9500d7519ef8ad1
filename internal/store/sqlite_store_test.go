package store

import (
	"path/filepath"
	"testing"

	"github.com/semnotes/semnotes/internal/errortypes"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "embeddings.db"))
	if err := s.Initialize(); err != nil {
		t.Fatalf("Failed to initialize sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreSaveAndFindByID(t *testing.T) {
	s := newTestSQLiteStore(t)

	record := testRecord("note1", "notes/a.md", "sha256:abc")
	if err := s.Save(record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.FindByID("note1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.NoteID != record.NoteID || got.Path != record.Path || got.ContentHash != record.ContentHash {
		t.Errorf("Loaded record does not match saved record: %+v", got)
	}
	if len(got.Vector) != 3 || got.Vector[1] != record.Vector[1] {
		t.Errorf("Vector did not round-trip: %v", got.Vector)
	}
	if !got.CreatedAt.Equal(record.CreatedAt) {
		t.Errorf("CreatedAt did not round-trip: %v vs %v", got.CreatedAt, record.CreatedAt)
	}
}

func TestSQLiteStoreFindByIDNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.FindByID("missing")
	if !errortypes.IsNotFound(err) {
		t.Errorf("Expected a not-found error, got %v", err)
	}
}

func TestSQLiteStoreOverwrite(t *testing.T) {
	s := newTestSQLiteStore(t)

	if err := s.Save(testRecord("n1", "a.md", "sha256:1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(testRecord("n1", "a.md", "sha256:2")); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected count 1 after overwrite, got %d", count)
	}

	hash, err := s.ContentHash("n1")
	if err != nil {
		t.Fatalf("ContentHash failed: %v", err)
	}
	if hash != "sha256:2" {
		t.Errorf("Expected updated hash, got %s", hash)
	}
}

func TestSQLiteStoreDeleteAndClear(t *testing.T) {
	s := newTestSQLiteStore(t)

	if err := s.SaveBatch([]*Record{
		testRecord("n1", "a.md", "sha256:1"),
		testRecord("n2", "b.md", "sha256:2"),
	}); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	if err := s.Delete("n1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, err := s.Exists("n1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Expected record gone after delete")
	}
	if err := s.Delete("n1"); err != nil {
		t.Errorf("Expected deleting a missing id to succeed, got %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	records, err := s.FindAll()
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records after clear, got %d", len(records))
	}
}

func TestSQLiteStoreIndexRebuiltOnReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "embeddings.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := first.Save(testRecord("n1", "a.md", "sha256:1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Initialize(); err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer second.Close()

	summary, err := second.Index()
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if summary.Total != 1 {
		t.Errorf("Expected summary rebuilt from the table, got total %d", summary.Total)
	}

	got, err := second.FindByPath("a.md")
	if err != nil {
		t.Fatalf("FindByPath failed: %v", err)
	}
	if got.NoteID != "n1" {
		t.Errorf("Expected note n1, got %s", got.NoteID)
	}
}
