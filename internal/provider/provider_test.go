package provider

import (
	"context"
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMockProviderIsDeterministic(t *testing.T) {
	p := NewMockProvider(128)
	ctx := context.Background()

	a, err := p.Embed(ctx, "some note text")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := p.Embed(ctx, "some note text")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(a) != 128 {
		t.Fatalf("Expected 128 dimensions, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Expected deterministic embedding, values differ at %d", i)
		}
	}
}

func TestMockProviderDifferentTextsDiffer(t *testing.T) {
	p := NewMockProvider(64)
	ctx := context.Background()

	a, _ := p.Embed(ctx, "first")
	b, _ := p.Embed(ctx, "second")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected different texts to produce different embeddings")
	}
}

func TestMockProviderProducesUnitVectors(t *testing.T) {
	p := NewMockProvider(32)

	vec, err := p.Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sumSquares)-1.0) > 1e-5 {
		t.Errorf("Expected unit-length vector, got magnitude %f", math.Sqrt(sumSquares))
	}
}

func TestMockProviderEmptyTextEmbeds(t *testing.T) {
	p := NewMockProvider(16)

	vec, err := p.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected empty text to embed without error, got %v", err)
	}
	if len(vec) != 16 {
		t.Errorf("Expected 16 dimensions, got %d", len(vec))
	}
}

func TestMockProviderEmbedBatchPreservesOrder(t *testing.T) {
	p := NewMockProvider(32)
	ctx := context.Background()

	texts := []string{"alpha", "beta", "gamma"}
	batch, err := p.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("Expected %d vectors, got %d", len(texts), len(batch))
	}

	for i, text := range texts {
		single, err := p.Embed(ctx, text)
		if err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
		for j := range single {
			if batch[i][j] != single[j] {
				t.Fatalf("Batch vector %d does not match single embed of %q", i, text)
			}
		}
	}
}

func TestNormalizeInput(t *testing.T) {
	if got := normalizeInput(""); got != " " {
		t.Errorf("Expected empty input to normalize to a single space, got %q", got)
	}
	if got := normalizeInput("   \n\t "); got != " " {
		t.Errorf("Expected whitespace-only input to normalize to a single space, got %q", got)
	}

	long := strings.Repeat("x", MaxInputLength+500)
	if got := normalizeInput(long); len(got) != MaxInputLength {
		t.Errorf("Expected long input truncated to %d, got %d", MaxInputLength, len(got))
	}

	if got := normalizeInput("keep me"); got != "keep me" {
		t.Errorf("Expected normal input unchanged, got %q", got)
	}
}

func TestNormalizeInputTruncatesOnRuneBoundary(t *testing.T) {
	// Place a multi-byte rune straddling the byte cap; truncation must
	// back up to the rune start instead of emitting a partial sequence.
	long := strings.Repeat("x", MaxInputLength-1) + strings.Repeat("é", 300)

	got := normalizeInput(long)
	if len(got) > MaxInputLength {
		t.Errorf("Expected truncation to at most %d bytes, got %d", MaxInputLength, len(got))
	}
	if !utf8.ValidString(got) {
		t.Error("Expected truncated input to remain valid UTF-8")
	}
	if got[len(got)-1] != 'x' {
		t.Errorf("Expected the straddling rune dropped entirely, got trailing byte %q", got[len(got)-1])
	}
}

func TestFactoryKnownProviders(t *testing.T) {
	tests := []struct {
		name      string
		wantModel string
	}{
		{ProviderOpenAI, "text-embedding-3-small"},
		{ProviderGoogle, "text-embedding-004"},
		{ProviderVoyage, "voyage-3"},
		{ProviderMock, "mock-embedder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.name, Config{APIKey: "key"})
			if err != nil {
				t.Fatalf("New(%q) failed: %v", tt.name, err)
			}
			if p.Name() != tt.name {
				t.Errorf("Expected name %q, got %q", tt.name, p.Name())
			}
			if p.Model() != tt.wantModel {
				t.Errorf("Expected default model %q, got %q", tt.wantModel, p.Model())
			}
			if p.Dimensions() <= 0 {
				t.Errorf("Expected positive dimensions, got %d", p.Dimensions())
			}
		})
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	if _, err := New("cohere", Config{}); err == nil {
		t.Error("Expected an error for an unknown provider name")
	}
}

func TestFactoryModelOverride(t *testing.T) {
	p, err := New(ProviderOpenAI, Config{APIKey: "key", ModelID: "text-embedding-3-large", Dimensions: 3072})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if p.Model() != "text-embedding-3-large" {
		t.Errorf("Expected overridden model, got %q", p.Model())
	}
	if p.Dimensions() != 3072 {
		t.Errorf("Expected overridden dimensions, got %d", p.Dimensions())
	}
}
