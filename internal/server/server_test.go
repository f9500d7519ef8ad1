package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/semnotes/semnotes/internal/notes"
	"github.com/semnotes/semnotes/internal/provider"
	"github.com/semnotes/semnotes/internal/search"
	"github.com/semnotes/semnotes/internal/store"
	"github.com/semnotes/semnotes/internal/syncer"
	"github.com/semnotes/semnotes/internal/tools"
)

// newTestToolServer wires a server over a real directory source, file
// store, and the deterministic mock provider.
func newTestToolServer(t *testing.T) *MCPNoteToolServer {
	t.Helper()

	root := t.TempDir()
	for rel, content := range map[string]string{
		"alpha.md": "# Alpha\n\nConsensus protocols.\n",
		"beta.md":  "# Beta\n\nWeekend plans.\n",
	} {
		if err := os.WriteFile(filepath.Join(root, rel), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write note: %v", err)
		}
	}

	source := notes.NewDirSource(root)
	st := store.NewFileStore(filepath.Join(t.TempDir(), ".semnotes"))
	if err := st.Initialize(); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	prov := provider.NewMockProvider(32)
	srv := NewNoteToolServer(source, st, syncer.NewEngine(source, st, prov, nil), search.NewEngine(st, prov, nil), nil)
	if err := srv.Initialize(); err != nil {
		t.Fatalf("Failed to initialize server: %v", err)
	}
	return srv
}

func TestInitializeRequiresDependencies(t *testing.T) {
	srv := NewNoteToolServer(nil, nil, nil, nil, nil)
	if err := srv.Initialize(); err == nil {
		t.Error("Expected initialization to fail with nil dependencies")
	}
}

func TestHandleEmbedNote(t *testing.T) {
	srv := newTestToolServer(t)

	resp, err := srv.handleEmbedNote(nil, tools.EmbedNoteRequest{Path: "alpha.md"})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("Expected success, got %s (%s)", resp.Status, resp.Error)
	}
	if resp.Reason != syncer.ReasonNew || !resp.Updated {
		t.Errorf("Expected a new embedding, got reason=%s updated=%v", resp.Reason, resp.Updated)
	}

	// Same content again: skipped.
	resp, err = srv.handleEmbedNote(nil, tools.EmbedNoteRequest{NoteID: resp.NoteID})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Reason != syncer.ReasonSkipped || resp.Updated {
		t.Errorf("Expected a skip on fresh content, got reason=%s updated=%v", resp.Reason, resp.Updated)
	}
}

func TestHandleEmbedNoteValidation(t *testing.T) {
	srv := newTestToolServer(t)

	resp, err := srv.handleEmbedNote(nil, tools.EmbedNoteRequest{})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "error" || resp.Error == "" {
		t.Errorf("Expected a validation error in the response, got %+v", resp)
	}
}

func TestHandleEmbedAllNotes(t *testing.T) {
	srv := newTestToolServer(t)

	resp, err := srv.handleEmbedAllNotes(nil, tools.EmbedBatchRequest{})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("Expected success, got %s (%s)", resp.Status, resp.Error)
	}
	if resp.Success != 2 || resp.Failed != 0 {
		t.Errorf("Expected both notes embedded, got %+v", resp)
	}

	resp, err = srv.handleEmbedStaleNotes(nil, tools.EmbedBatchRequest{})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Success != 0 || resp.Skipped != 2 {
		t.Errorf("Expected the stale pass to skip everything, got %+v", resp)
	}
}

func TestHandleSearchSimilar(t *testing.T) {
	srv := newTestToolServer(t)

	if resp, err := srv.handleEmbedAllNotes(nil, tools.EmbedBatchRequest{}); err != nil || resp.Status != "success" {
		t.Fatalf("Embed setup failed: %v %+v", err, resp)
	}

	resp, err := srv.handleSearchSimilar(nil, tools.SearchSimilarRequest{Query: "consensus", Threshold: -1})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("Expected success, got %s (%s)", resp.Status, resp.Error)
	}
	if len(resp.Results) != 2 {
		t.Errorf("Expected both notes with filtering disabled, got %d", len(resp.Results))
	}

	// Empty query is rejected.
	resp, err = srv.handleSearchSimilar(nil, tools.SearchSimilarRequest{})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "error" {
		t.Error("Expected an error response for an empty query")
	}
}

func TestHandleFindSimilarToNote(t *testing.T) {
	srv := newTestToolServer(t)

	if resp, err := srv.handleEmbedAllNotes(nil, tools.EmbedBatchRequest{}); err != nil || resp.Status != "success" {
		t.Fatalf("Embed setup failed: %v %+v", err, resp)
	}

	alphaID := notes.GenerateID("alpha.md")
	resp, err := srv.handleFindSimilarToNote(nil, tools.FindSimilarToNoteRequest{NoteID: alphaID, Threshold: -1})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("Expected success, got %s (%s)", resp.Status, resp.Error)
	}
	for _, r := range resp.Results {
		if r.NoteID == alphaID {
			t.Error("Expected the subject note excluded from its own results")
		}
	}

	resp, err = srv.handleFindSimilarToNote(nil, tools.FindSimilarToNoteRequest{})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "error" {
		t.Error("Expected an error response for a missing note id")
	}
}

func TestHandleGetStats(t *testing.T) {
	srv := newTestToolServer(t)

	if resp, err := srv.handleEmbedAllNotes(nil, tools.EmbedBatchRequest{}); err != nil || resp.Status != "success" {
		t.Fatalf("Embed setup failed: %v %+v", err, resp)
	}

	resp, err := srv.handleGetStats(nil, tools.GetStatsRequest{})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.TotalEmbeddings != 2 {
		t.Errorf("Expected 2 embeddings, got %d", resp.TotalEmbeddings)
	}
	if resp.Provider != "mock" {
		t.Errorf("Expected the mock provider in stats, got %s", resp.Provider)
	}
	if resp.LastUpdated == "" {
		t.Error("Expected a last-updated timestamp")
	}
}

func TestHandleDeleteEmbedding(t *testing.T) {
	srv := newTestToolServer(t)

	embedResp, err := srv.handleEmbedNote(nil, tools.EmbedNoteRequest{Path: "alpha.md"})
	if err != nil || embedResp.Status != "success" {
		t.Fatalf("Embed setup failed: %v %+v", err, embedResp)
	}

	resp, err := srv.handleDeleteEmbedding(nil, tools.DeleteEmbeddingRequest{NoteID: embedResp.NoteID})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("Expected success, got %s (%s)", resp.Status, resp.Error)
	}

	// Missing id is rejected.
	resp, err = srv.handleDeleteEmbedding(nil, tools.DeleteEmbeddingRequest{})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "error" {
		t.Error("Expected an error response for a missing note id")
	}
}

func TestHandleClearAllEmbeddings(t *testing.T) {
	srv := newTestToolServer(t)

	if resp, err := srv.handleEmbedAllNotes(nil, tools.EmbedBatchRequest{}); err != nil || resp.Status != "success" {
		t.Fatalf("Embed setup failed: %v %+v", err, resp)
	}

	// Without confirmation the store is untouched.
	resp, err := srv.handleClearAllEmbeddings(nil, tools.ClearAllEmbeddingsRequest{})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "error" {
		t.Error("Expected rejection without confirmation")
	}
	stats, err := srv.handleGetStats(nil, tools.GetStatsRequest{})
	if err != nil || stats.TotalEmbeddings != 2 {
		t.Fatalf("Expected the store untouched, got %+v (%v)", stats, err)
	}

	resp, err = srv.handleClearAllEmbeddings(nil, tools.ClearAllEmbeddingsRequest{Confirmation: "confirm"})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("Expected success with confirmation, got %s (%s)", resp.Status, resp.Error)
	}
	stats, err = srv.handleGetStats(nil, tools.GetStatsRequest{})
	if err != nil || stats.TotalEmbeddings != 0 {
		t.Errorf("Expected an empty store after clear, got %+v (%v)", stats, err)
	}
}
