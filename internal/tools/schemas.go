// Package tools defines the MCP tool names and request/response
// schemas for the semnotes service.
package tools

const (
	// ToolEmbedNote is the name of the embed_note MCP tool
	ToolEmbedNote = "embed_note"

	// ToolEmbedAllNotes is the name of the embed_all_notes MCP tool
	ToolEmbedAllNotes = "embed_all_notes"

	// ToolEmbedStaleNotes is the name of the embed_stale_notes MCP tool
	ToolEmbedStaleNotes = "embed_stale_notes"

	// ToolSearchSimilar is the name of the search_similar MCP tool
	ToolSearchSimilar = "search_similar"

	// ToolFindSimilarToNote is the name of the find_similar_to_note MCP tool
	ToolFindSimilarToNote = "find_similar_to_note"

	// ToolGetStats is the name of the get_stats MCP tool
	ToolGetStats = "get_stats"

	// ToolDeleteEmbedding is the name of the delete_embedding MCP tool
	ToolDeleteEmbedding = "delete_embedding"

	// ToolClearAllEmbeddings is the name of the clear_all_embeddings MCP tool
	ToolClearAllEmbeddings = "clear_all_embeddings"
)

// EmbedNoteRequest defines the input schema for embed_note tool
type EmbedNoteRequest struct {
	// NoteID identifies the note to embed. Either NoteID or Path must
	// be set.
	NoteID string `json:"note_id,omitempty"`

	// Path identifies the note by collection-relative path.
	Path string `json:"path,omitempty"`

	// Force re-embeds even when the stored embedding is fresh.
	Force bool `json:"force,omitempty"`
}

// EmbedNoteResponse defines the output schema for embed_note tool
type EmbedNoteResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// NoteID is the id of the embedded note
	NoteID string `json:"note_id,omitempty"`

	// Reason explains the outcome: "new", "stale", or "skipped"
	Reason string `json:"reason,omitempty"`

	// Updated reports whether the provider was called and the record
	// rewritten
	Updated bool `json:"updated"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// EmbedBatchRequest defines the input schema for the embed_all_notes
// and embed_stale_notes tools
type EmbedBatchRequest struct {
	// ExcludedFolders adds folder exclusions on top of the configured
	// ones for this run only
	ExcludedFolders []string `json:"excluded_folders,omitempty"`
}

// EmbedBatchResponse defines the output schema for the embed_all_notes
// and embed_stale_notes tools
type EmbedBatchResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Success is the number of notes (re-)embedded
	Success int `json:"success"`

	// Skipped is the number of notes whose embedding was already fresh
	Skipped int `json:"skipped"`

	// Failed is the number of notes that could not be embedded
	Failed int `json:"failed"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// SearchSimilarRequest defines the input schema for search_similar tool
type SearchSimilarRequest struct {
	// Query is the text to search for
	Query string `json:"query"`

	// Limit is the maximum number of results to return
	Limit int `json:"limit,omitempty"`

	// Threshold is the minimum similarity score for a result
	Threshold float64 `json:"threshold,omitempty"`

	// ExcludedFolders removes notes under these folders from the results
	ExcludedFolders []string `json:"excluded_folders,omitempty"`
}

// FindSimilarToNoteRequest defines the input schema for
// find_similar_to_note tool
type FindSimilarToNoteRequest struct {
	// NoteID identifies the note whose neighbors to find
	NoteID string `json:"note_id"`

	// Limit is the maximum number of results to return
	Limit int `json:"limit,omitempty"`

	// Threshold is the minimum similarity score for a result
	Threshold float64 `json:"threshold,omitempty"`

	// ExcludedFolders removes notes under these folders from the results
	ExcludedFolders []string `json:"excluded_folders,omitempty"`
}

// SearchResult is one scored hit in a search response
type SearchResult struct {
	// NoteID is the id of the matching note
	NoteID string `json:"note_id"`

	// Path is the collection-relative path of the matching note
	Path string `json:"path"`

	// Title is the display title of the matching note
	Title string `json:"title"`

	// Similarity is the cosine similarity score in [-1, 1]
	Similarity float64 `json:"similarity"`
}

// SearchResponse defines the output schema for the search_similar and
// find_similar_to_note tools
type SearchResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Results contains the matching notes, best first
	Results []SearchResult `json:"results"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// GetStatsRequest defines the input schema for get_stats tool
type GetStatsRequest struct{}

// GetStatsResponse defines the output schema for get_stats tool
type GetStatsResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// TotalEmbeddings is the number of stored embedding records
	TotalEmbeddings int `json:"total_embeddings"`

	// Provider is the embedding provider name in use
	Provider string `json:"provider,omitempty"`

	// Model is the embedding model identifier in use
	Model string `json:"model,omitempty"`

	// Dimensions is the vector dimensionality
	Dimensions int `json:"dimensions,omitempty"`

	// LastUpdated is the RFC3339 timestamp of the newest record
	LastUpdated string `json:"last_updated,omitempty"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// DeleteEmbeddingRequest defines the input schema for delete_embedding tool
type DeleteEmbeddingRequest struct {
	// NoteID is the id of the note whose embedding to delete
	NoteID string `json:"note_id"`
}

// DeleteEmbeddingResponse defines the output schema for delete_embedding tool
type DeleteEmbeddingResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// ClearAllEmbeddingsRequest defines the input schema for
// clear_all_embeddings tool
type ClearAllEmbeddingsRequest struct {
	// Confirmation must be set to "confirm" to prevent accidental
	// clearing
	Confirmation string `json:"confirmation"`
}

// ClearAllEmbeddingsResponse defines the output schema for
// clear_all_embeddings tool
type ClearAllEmbeddingsResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}
