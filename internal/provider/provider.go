// Package provider contains implementations of the embedding provider
// contract for the different remote embedding backends.
package provider

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// Provider constants
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderVoyage = "voyage"
	ProviderMock   = "mock"

	// Default settings
	DefaultTimeout = 30 * time.Second

	// MaxInputLength is a conservative cap on the text sent per item;
	// longer notes are truncated before transmission.
	MaxInputLength = 8000
)

// Provider defines the interface for embedding backends.
type Provider interface {
	// Embed converts a single text into a vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts into vectors, preserving input order
	// regardless of how the remote API orders its response. Requests
	// larger than the backend's batch limit are chunked internally.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// IsAvailable reports whether the provider is configured with a
	// credential and can be called.
	IsAvailable() bool

	// Name returns the provider name.
	Name() string

	// Model returns the model identifier in use.
	Model() string

	// Dimensions returns the dimensionality of produced vectors.
	Dimensions() int

	// TestAPIKey checks a candidate credential with a minimal request.
	TestAPIKey(ctx context.Context, key string) error
}

// Config holds common configuration for embedding providers.
type Config struct {
	APIKey     string
	ModelID    string
	Dimensions int
}

// normalizeInput substitutes a single space for empty or whitespace-only
// text, since many providers reject empty input, and truncates overly
// long text on a rune boundary.
func normalizeInput(text string) string {
	if strings.TrimSpace(text) == "" {
		return " "
	}
	if len(text) > MaxInputLength {
		cut := MaxInputLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		return text[:cut]
	}
	return text
}

// normalizeInputs applies normalizeInput to each text.
func normalizeInputs(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = normalizeInput(t)
	}
	return out
}
