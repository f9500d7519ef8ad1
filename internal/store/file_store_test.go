package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/semnotes/semnotes/internal/errortypes"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(t.TempDir())
	if err := s.Initialize(); err != nil {
		t.Fatalf("Failed to initialize file store: %v", err)
	}
	return s
}

func testRecord(noteID, path, contentHash string) *Record {
	now := time.Now().UTC()
	return &Record{
		NoteID:      noteID,
		Path:        path,
		Title:       "Test Note",
		ContentHash: contentHash,
		Vector:      []float32{0.1, 0.2, 0.3},
		Model:       "mock-embedder",
		Provider:    "mock",
		Dimensions:  3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestFileStoreSaveAndFindByID(t *testing.T) {
	s := newTestFileStore(t)

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
	if len(got.Vector) != 3 {
		t.Errorf("Expected vector of length 3, got %d", len(got.Vector))
	}
}

func TestFileStoreFindByIDNotFound(t *testing.T) {
	s := newTestFileStore(t)

	_, err := s.FindByID("missing")
	if err == nil {
		t.Fatal("Expected an error for a missing record")
	}
	if !errortypes.IsNotFound(err) {
		t.Errorf("Expected a not-found error, got %v", err)
	}
}

func TestFileStoreSaveRejectsInvalidRecord(t *testing.T) {
	s := newTestFileStore(t)

	record := testRecord("note1", "a.md", "sha256:abc")
	record.Dimensions = 7

	err := s.Save(record)
	if err == nil {
		t.Fatal("Expected an error for a record with wrong dimensions")
	}
	if !errortypes.IsValidationError(err) {
		t.Errorf("Expected a validation error, got %v", err)
	}
}

func TestFileStoreSaveKeepsIndexConsistent(t *testing.T) {
	s := newTestFileStore(t)

	for _, r := range []*Record{
		testRecord("n1", "a.md", "sha256:1"),
		testRecord("n2", "b.md", "sha256:2"),
		testRecord("n3", "c.md", "sha256:3"),
	} {
		if err := s.Save(r); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	summary, err := s.Index()
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	records, err := s.FindAll()
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}

	if summary.Total != len(records) {
		t.Errorf("Index total %d does not match record count %d", summary.Total, len(records))
	}
	if summary.Total != len(summary.Notes) {
		t.Errorf("Index total %d does not match notes map size %d", summary.Total, len(summary.Notes))
	}
	if summary.Provider != "mock" || summary.Model != "mock-embedder" {
		t.Errorf("Expected provider/model hint from records, got %s/%s", summary.Provider, summary.Model)
	}
}

func TestFileStoreOverwriteDoesNotGrowIndex(t *testing.T) {
	s := newTestFileStore(t)

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
		t.Errorf("Expected updated content hash, got %s", hash)
	}
}

func TestFileStoreContentHashAbsentNote(t *testing.T) {
	s := newTestFileStore(t)

	hash, err := s.ContentHash("missing")
	if err != nil {
		t.Fatalf("ContentHash failed: %v", err)
	}
	if hash != "" {
		t.Errorf("Expected empty hash for absent note, got %q", hash)
	}
}

func TestFileStoreFindByPath(t *testing.T) {
	s := newTestFileStore(t)

	if err := s.Save(testRecord("n1", "notes/a.md", "sha256:1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.FindByPath("notes/a.md")
	if err != nil {
		t.Fatalf("FindByPath failed: %v", err)
	}
	if got.NoteID != "n1" {
		t.Errorf("Expected note n1, got %s", got.NoteID)
	}

	if _, err := s.FindByPath("notes/missing.md"); !errortypes.IsNotFound(err) {
		t.Errorf("Expected a not-found error for unknown path, got %v", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	s := newTestFileStore(t)

	if err := s.Save(testRecord("n1", "a.md", "sha256:1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := s.Delete("n1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err := s.Exists("n1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Expected record to be gone after delete")
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected count 0 after delete, got %d", count)
	}

	// Deleting a missing id is not an error.
	if err := s.Delete("n1"); err != nil {
		t.Errorf("Expected deleting a missing id to succeed, got %v", err)
	}
}

func TestFileStoreCorruptRecordIsSkipped(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := s.Save(testRecord("good", "a.md", "sha256:1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	corrupt := filepath.Join(dir, "embeddings", "bad.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to plant corrupt record: %v", err)
	}

	records, err := s.FindAll()
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(records) != 1 || records[0].NoteID != "good" {
		t.Errorf("Expected only the readable record, got %d records", len(records))
	}
}

func TestFileStoreCorruptIndexFallsBackToEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("garbage"), 0644); err != nil {
		t.Fatalf("Failed to plant corrupt index: %v", err)
	}

	summary, err := s.Index()
	if err != nil {
		t.Fatalf("Expected a corrupt index to degrade to empty, got %v", err)
	}
	if summary.Total != 0 || len(summary.Notes) != 0 {
		t.Errorf("Expected empty fallback summary, got total=%d", summary.Total)
	}
}

func TestFileStoreUpdateIndexRebuilds(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := s.Save(testRecord("n1", "a.md", "sha256:1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(testRecord("n2", "b.md", "sha256:2")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Remove a record file behind the store's back; the summary is now
	// stale until the next rebuild.
	if err := os.Remove(filepath.Join(dir, "embeddings", "n2.json")); err != nil {
		t.Fatalf("Failed to remove record file: %v", err)
	}

	if err := s.UpdateIndex(); err != nil {
		t.Fatalf("UpdateIndex failed: %v", err)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected rebuilt index with 1 record, got %d", count)
	}
}

func TestFileStoreClear(t *testing.T) {
	s := newTestFileStore(t)

	if err := s.SaveBatch([]*Record{
		testRecord("n1", "a.md", "sha256:1"),
		testRecord("n2", "b.md", "sha256:2"),
	}); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
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

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected count 0 after clear, got %d", count)
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first := NewFileStore(dir)
	if err := first.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := first.Save(testRecord("n1", "a.md", "sha256:1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := NewFileStore(dir)
	if err := second.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	got, err := second.FindByID("n1")
	if err != nil {
		t.Fatalf("FindByID on reopened store failed: %v", err)
	}
	if got.ContentHash != "sha256:1" {
		t.Errorf("Expected persisted record, got %+v", got)
	}

	count, err := second.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected persisted index with 1 record, got %d", count)
	}
}
