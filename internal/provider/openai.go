package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/semnotes/semnotes/internal/errortypes"
)

const (
	openaiAPIURL = "https://api.openai.com/v1/embeddings"

	// openaiMaxBatchSize is the maximum inputs per embeddings request.
	openaiMaxBatchSize = 2048

	openaiDefaultModel      = "text-embedding-3-small"
	openaiDefaultDimensions = 1536
)

// OpenAIProvider implements the Provider interface for OpenAI's
// embeddings API.
type OpenAIProvider struct {
	Config
	httpClient *http.Client
}

// OpenAIRequest represents a request to OpenAI's embeddings API
type OpenAIRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// OpenAIResponse represents a response from OpenAI's embeddings API
type OpenAIResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider creates a new instance of the OpenAI provider
func NewOpenAIProvider(config Config) *OpenAIProvider {
	if config.ModelID == "" {
		config.ModelID = openaiDefaultModel
	}
	if config.Dimensions <= 0 {
		config.Dimensions = openaiDefaultDimensions
	}
	return &OpenAIProvider{
		Config: config,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

// Model returns the model identifier in use
func (p *OpenAIProvider) Model() string {
	return p.ModelID
}

// Dimensions returns the dimensionality of produced vectors
func (p *OpenAIProvider) Dimensions() int {
	return p.Config.Dimensions
}

// IsAvailable reports whether an API key is configured
func (p *OpenAIProvider) IsAvailable() bool {
	return p.APIKey != ""
}

// Embed converts a single text into a vector
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts texts into vectors, chunking oversized requests.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !p.IsAvailable() {
		return nil, errortypes.ProviderUnavailableError(
			fmt.Errorf("OpenAI API key not provided"), "embedding provider not configured")
	}

	inputs := normalizeInputs(texts)
	vectors := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += openaiMaxBatchSize {
		end := start + openaiMaxBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		chunk, err := p.embedChunk(ctx, p.APIKey, inputs[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, chunk...)
	}
	return vectors, nil
}

// embedChunk performs one embeddings API call. The response is re-sorted
// by request index so the output order always matches the input order.
func (p *OpenAIProvider) embedChunk(ctx context.Context, apiKey string, inputs []string) ([][]float32, error) {
	reqBody := OpenAIRequest{
		Model: p.ModelID,
		Input: inputs,
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		openaiAPIURL,
		strings.NewReader(string(reqJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errortypes.ProviderCallError(err, "error sending request to OpenAI API")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errortypes.ProviderCallError(err, "error reading response body")
	}

	var openaiResponse OpenAIResponse
	if err := json.Unmarshal(respBody, &openaiResponse); err != nil {
		return nil, errortypes.ProviderCallError(err, "error unmarshaling response").
			WithField("status", resp.StatusCode)
	}

	if openaiResponse.Error != nil {
		return nil, errortypes.ProviderCallError(
			fmt.Errorf("OpenAI API error: %s: %s", openaiResponse.Error.Type, openaiResponse.Error.Message),
			"embedding request rejected").
			WithField("status", resp.StatusCode)
	}

	if len(openaiResponse.Data) != len(inputs) {
		return nil, errortypes.ProviderCallError(
			fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(openaiResponse.Data)),
			"incomplete response from OpenAI API")
	}

	sort.Slice(openaiResponse.Data, func(i, j int) bool {
		return openaiResponse.Data[i].Index < openaiResponse.Data[j].Index
	})

	vectors := make([][]float32, len(openaiResponse.Data))
	for i, item := range openaiResponse.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

// TestAPIKey checks a candidate credential with a one-item request.
func (p *OpenAIProvider) TestAPIKey(ctx context.Context, key string) error {
	if key == "" {
		return errortypes.ValidationError(fmt.Errorf("empty API key"), "cannot test empty key")
	}
	_, err := p.embedChunk(ctx, key, []string{"ping"})
	return err
}
