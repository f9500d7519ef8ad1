package provider

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"math"
)

// MockProvider is a deterministic Provider for tests and offline use.
// The same text always produces the same unit-length vector.
type MockProvider struct {
	dimensions int
}

// NewMockProvider creates a MockProvider with the specified dimensions.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 128
	}
	return &MockProvider{dimensions: dimensions}
}

// Name returns the provider name
func (p *MockProvider) Name() string {
	return ProviderMock
}

// Model returns the model identifier
func (p *MockProvider) Model() string {
	return "mock-embedder"
}

// Dimensions returns the dimensionality of produced vectors
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// IsAvailable always reports true; the mock needs no credential.
func (p *MockProvider) IsAvailable() bool {
	return true
}

// Embed generates a deterministic embedding seeded from an MD5 hash of
// the text.
func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	text = normalizeInput(text)
	embedding := make([]float32, p.dimensions)

	hash := md5.Sum([]byte(text))
	for i := 0; i < p.dimensions; i++ {
		hashIdx := (i * 4) % len(hash)
		seed := binary.LittleEndian.Uint32(append(hash[hashIdx:], hash[:4]...))
		embedding[i] = float32(seed%1000)/500.0 - 1.0
	}

	normalize(embedding)
	return embedding, nil
}

// EmbedBatch embeds each text in order.
func (p *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// TestAPIKey always succeeds; the mock accepts any credential.
func (p *MockProvider) TestAPIKey(ctx context.Context, key string) error {
	return nil
}

// normalize scales the embedding to unit length.
func normalize(embedding []float32) {
	var sumSquares float32
	for _, val := range embedding {
		sumSquares += val * val
	}
	magnitude := float32(math.Sqrt(float64(sumSquares)))
	if magnitude == 0 {
		return
	}
	for i := range embedding {
		embedding[i] /= magnitude
	}
}
