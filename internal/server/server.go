// Package server provides the MCP server implementation for the
// semnotes service.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/localrivet/gomcp/server"
	"github.com/semnotes/semnotes/internal/errortypes"
	"github.com/semnotes/semnotes/internal/notes"
	"github.com/semnotes/semnotes/internal/search"
	"github.com/semnotes/semnotes/internal/store"
	"github.com/semnotes/semnotes/internal/syncer"
	"github.com/semnotes/semnotes/internal/tools"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// MCPNoteToolServer implements the MCP tool surface over the embedding
// store: synchronization, similarity search, and maintenance tools.
type MCPNoteToolServer struct {
	source    notes.Source
	store     store.Store
	syncer    *syncer.Engine
	search    *search.Engine
	excluded  []string
	mcpServer server.Server
}

// NewNoteToolServer creates a new MCPNoteToolServer instance. The
// excluded folders apply to every batch synchronization the server
// runs.
func NewNoteToolServer(source notes.Source, st store.Store, sync *syncer.Engine, srch *search.Engine, excludedFolders []string) *MCPNoteToolServer {
	return &MCPNoteToolServer{
		source:   source,
		store:    st,
		syncer:   sync,
		search:   srch,
		excluded: excludedFolders,
	}
}

// Initialize registers the tool handlers on a fresh MCP server.
func (s *MCPNoteToolServer) Initialize() error {
	slog.Info("Initializing MCP note tool server")

	if s.source == nil || s.store == nil || s.syncer == nil || s.search == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	srv := server.NewServer("semnotes")

	srv = srv.Tool(tools.ToolEmbedNote, "Embed a single note, skipping when its stored embedding is still fresh",
		s.handleEmbedNote)

	srv = srv.Tool(tools.ToolEmbedAllNotes, "Embed every note in the collection, re-embedding stale ones",
		s.handleEmbedAllNotes)

	srv = srv.Tool(tools.ToolEmbedStaleNotes, "Re-embed only the notes whose content changed since their last embedding",
		s.handleEmbedStaleNotes)

	srv = srv.Tool(tools.ToolSearchSimilar, "Find notes semantically similar to a query text",
		s.handleSearchSimilar)

	srv = srv.Tool(tools.ToolFindSimilarToNote, "Find notes semantically similar to an existing note",
		s.handleFindSimilarToNote)

	srv = srv.Tool(tools.ToolGetStats, "Report embedding store statistics",
		s.handleGetStats)

	srv = srv.Tool(tools.ToolDeleteEmbedding, "Delete the stored embedding for a note",
		s.handleDeleteEmbedding)

	srv = srv.Tool(tools.ToolClearAllEmbeddings, "Delete every stored embedding",
		s.handleClearAllEmbeddings)

	s.mcpServer = srv
	slog.Info("MCP note tool server initialized successfully", "tool_count", 8)
	return nil
}

// Start starts the MCP server on the stdio transport.
func (s *MCPNoteToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	slog.Info("Starting MCP note tool server")

	stdioServer := s.mcpServer.AsStdio()
	return stdioServer.Run()
}

// Stop gracefully shuts down the MCP server.
func (s *MCPNoteToolServer) Stop() error {
	slog.Info("Stopping MCP note tool server")
	// The server exits when stdin is closed.
	return nil
}

// handleEmbedNote handles the embed_note MCP tool call.
func (s *MCPNoteToolServer) handleEmbedNote(ctx *server.Context, req tools.EmbedNoteRequest) (tools.EmbedNoteResponse, error) {
	slog.Info("Processing embed_note request", "note_id", req.NoteID, "path", req.Path, "force", req.Force)

	response := tools.EmbedNoteResponse{
		Status: "success",
	}

	noteID := req.NoteID
	if noteID == "" && req.Path != "" {
		noteID = s.source.GenerateID(req.Path)
	}
	if noteID == "" {
		err := errortypes.ValidationError(errors.New("note_id or path is required"), "invalid embed_note request")
		response.Status = "error"
		response.Error = toolError(tools.ToolEmbedNote, err)
		return response, nil
	}

	var result *syncer.Result
	var err error
	if req.Force {
		result, err = s.syncer.ForceEmbed(context.Background(), noteID)
	} else {
		result, err = s.syncer.EmbedOne(context.Background(), noteID)
	}
	if err != nil {
		response.Status = "error"
		response.Error = toolError(tools.ToolEmbedNote, err)
		return response, nil
	}

	response.NoteID = result.Record.NoteID
	response.Reason = result.Reason
	response.Updated = result.WasUpdated
	slog.Info("Successfully processed embed_note", "note_id", response.NoteID, "reason", response.Reason)

	return response, nil
}

// handleEmbedAllNotes handles the embed_all_notes MCP tool call.
func (s *MCPNoteToolServer) handleEmbedAllNotes(ctx *server.Context, req tools.EmbedBatchRequest) (tools.EmbedBatchResponse, error) {
	slog.Info("Processing embed_all_notes request")
	return s.runBatch(tools.ToolEmbedAllNotes, req, s.syncer.EmbedAll)
}

// handleEmbedStaleNotes handles the embed_stale_notes MCP tool call.
func (s *MCPNoteToolServer) handleEmbedStaleNotes(ctx *server.Context, req tools.EmbedBatchRequest) (tools.EmbedBatchResponse, error) {
	slog.Info("Processing embed_stale_notes request")
	return s.runBatch(tools.ToolEmbedStaleNotes, req, s.syncer.EmbedStale)
}

func (s *MCPNoteToolServer) runBatch(toolName string, req tools.EmbedBatchRequest, batch func(context.Context, []string, syncer.ProgressFunc) (*syncer.BatchResult, error)) (tools.EmbedBatchResponse, error) {
	response := tools.EmbedBatchResponse{
		Status: "success",
	}

	excluded := append(append([]string{}, s.excluded...), req.ExcludedFolders...)

	result, err := batch(context.Background(), excluded, func(p syncer.Progress) {
		if p.Current != "" {
			slog.Debug("Batch progress", "current", p.Current, "completed", p.Completed, "total", p.Total)
		}
	})
	if err != nil {
		response.Status = "error"
		response.Error = toolError(toolName, err)
		return response, nil
	}

	response.Success = result.Success
	response.Skipped = result.Skipped
	response.Failed = result.Failed
	slog.Info("Batch embed finished", "success", result.Success, "skipped", result.Skipped, "failed", result.Failed)

	return response, nil
}

// handleSearchSimilar handles the search_similar MCP tool call.
func (s *MCPNoteToolServer) handleSearchSimilar(ctx *server.Context, req tools.SearchSimilarRequest) (tools.SearchResponse, error) {
	slog.Info("Processing search_similar request", "query_length", len(req.Query), "limit", req.Limit)

	response := tools.SearchResponse{
		Status:  "success",
		Results: []tools.SearchResult{},
	}

	results, err := s.search.SearchByText(context.Background(), req.Query, search.Options{
		Threshold:       req.Threshold,
		Limit:           req.Limit,
		ExcludedFolders: req.ExcludedFolders,
	})
	if err != nil {
		response.Status = "error"
		response.Error = toolError(tools.ToolSearchSimilar, err)
		return response, nil
	}

	response.Results = toToolResults(results)
	slog.Info("Successfully retrieved search results", "count", len(results))

	return response, nil
}

// handleFindSimilarToNote handles the find_similar_to_note MCP tool call.
func (s *MCPNoteToolServer) handleFindSimilarToNote(ctx *server.Context, req tools.FindSimilarToNoteRequest) (tools.SearchResponse, error) {
	slog.Info("Processing find_similar_to_note request", "note_id", req.NoteID, "limit", req.Limit)

	response := tools.SearchResponse{
		Status:  "success",
		Results: []tools.SearchResult{},
	}

	if req.NoteID == "" {
		err := errortypes.ValidationError(errors.New("note_id cannot be empty"), "invalid find_similar_to_note request")
		response.Status = "error"
		response.Error = toolError(tools.ToolFindSimilarToNote, err)
		return response, nil
	}

	results, err := s.search.SearchByDocument(context.Background(), req.NoteID, search.Options{
		Threshold:       req.Threshold,
		Limit:           req.Limit,
		ExcludedFolders: req.ExcludedFolders,
	})
	if err != nil {
		response.Status = "error"
		response.Error = toolError(tools.ToolFindSimilarToNote, err)
		return response, nil
	}

	response.Results = toToolResults(results)
	slog.Info("Successfully retrieved neighbor results", "note_id", req.NoteID, "count", len(results))

	return response, nil
}

// handleGetStats handles the get_stats MCP tool call.
func (s *MCPNoteToolServer) handleGetStats(ctx *server.Context, req tools.GetStatsRequest) (tools.GetStatsResponse, error) {
	slog.Info("Processing get_stats request")

	response := tools.GetStatsResponse{
		Status: "success",
	}

	summary, err := s.store.Index()
	if err != nil {
		response.Status = "error"
		response.Error = toolError(tools.ToolGetStats, err)
		return response, nil
	}

	response.TotalEmbeddings = summary.Total
	response.Provider = summary.Provider
	response.Model = summary.Model
	if !summary.UpdatedAt.IsZero() {
		response.LastUpdated = summary.UpdatedAt.Format(time.RFC3339)
	}

	return response, nil
}

// handleDeleteEmbedding handles the delete_embedding MCP tool call.
func (s *MCPNoteToolServer) handleDeleteEmbedding(ctx *server.Context, req tools.DeleteEmbeddingRequest) (tools.DeleteEmbeddingResponse, error) {
	slog.Info("Processing delete_embedding request", "note_id", req.NoteID)

	response := tools.DeleteEmbeddingResponse{
		Status: "success",
	}

	if req.NoteID == "" {
		err := errortypes.ValidationError(errors.New("note_id cannot be empty"), "invalid delete_embedding request")
		response.Status = "error"
		response.Error = toolError(tools.ToolDeleteEmbedding, err)
		return response, nil
	}

	if err := s.store.Delete(req.NoteID); err != nil {
		response.Status = "error"
		response.Error = toolError(tools.ToolDeleteEmbedding, err)
		return response, nil
	}

	slog.Info("Successfully deleted embedding", "note_id", req.NoteID)

	return response, nil
}

// handleClearAllEmbeddings handles the clear_all_embeddings MCP tool call.
func (s *MCPNoteToolServer) handleClearAllEmbeddings(ctx *server.Context, req tools.ClearAllEmbeddingsRequest) (tools.ClearAllEmbeddingsResponse, error) {
	slog.Info("Processing clear_all_embeddings request")

	response := tools.ClearAllEmbeddingsResponse{
		Status: "success",
	}

	if req.Confirmation != "confirm" {
		response.Status = "error"
		response.Error = "Confirmation required. Set confirmation to 'confirm' to proceed with clearing all embeddings"
		slog.Warn("Clear all embeddings operation rejected: missing confirmation")
		return response, nil
	}

	if err := s.store.Clear(); err != nil {
		response.Status = "error"
		response.Error = toolError(tools.ToolClearAllEmbeddings, err)
		return response, nil
	}

	slog.Info("Successfully cleared all embeddings")

	return response, nil
}

func toToolResults(results []search.Result) []tools.SearchResult {
	out := make([]tools.SearchResult, len(results))
	for i, r := range results {
		out[i] = tools.SearchResult{
			NoteID:     r.NoteID,
			Path:       r.Path,
			Title:      r.Title,
			Similarity: r.Similarity,
		}
	}
	return out
}
