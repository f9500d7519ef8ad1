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
	voyageAPIURL = "https://api.voyageai.com/v1/embeddings"

	// voyageMaxBatchSize is the maximum inputs per embeddings request.
	voyageMaxBatchSize = 128

	voyageDefaultModel      = "voyage-3"
	voyageDefaultDimensions = 1024
)

// VoyageProvider implements the Provider interface for Voyage AI's
// embeddings API.
type VoyageProvider struct {
	Config
	httpClient *http.Client
}

// VoyageRequest represents a request to Voyage's embeddings API
type VoyageRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// VoyageResponse represents a response from Voyage's embeddings API
type VoyageResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// NewVoyageProvider creates a new instance of the Voyage provider
func NewVoyageProvider(config Config) *VoyageProvider {
	if config.ModelID == "" {
		config.ModelID = voyageDefaultModel
	}
	if config.Dimensions <= 0 {
		config.Dimensions = voyageDefaultDimensions
	}
	return &VoyageProvider{
		Config: config,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Name returns the provider name
func (p *VoyageProvider) Name() string {
	return ProviderVoyage
}

// Model returns the model identifier in use
func (p *VoyageProvider) Model() string {
	return p.ModelID
}

// Dimensions returns the dimensionality of produced vectors
func (p *VoyageProvider) Dimensions() int {
	return p.Config.Dimensions
}

// IsAvailable reports whether an API key is configured
func (p *VoyageProvider) IsAvailable() bool {
	return p.APIKey != ""
}

// Embed converts a single text into a vector
func (p *VoyageProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts texts into vectors, chunking oversized requests.
func (p *VoyageProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !p.IsAvailable() {
		return nil, errortypes.ProviderUnavailableError(
			fmt.Errorf("Voyage API key not provided"), "embedding provider not configured")
	}

	inputs := normalizeInputs(texts)
	vectors := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += voyageMaxBatchSize {
		end := start + voyageMaxBatchSize
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

// embedChunk performs one embeddings API call, re-sorting the response
// by request index.
func (p *VoyageProvider) embedChunk(ctx context.Context, apiKey string, inputs []string) ([][]float32, error) {
	reqBody := VoyageRequest{
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
		voyageAPIURL,
		strings.NewReader(string(reqJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errortypes.ProviderCallError(err, "error sending request to Voyage API")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errortypes.ProviderCallError(err, "error reading response body")
	}

	var voyageResponse VoyageResponse
	if err := json.Unmarshal(respBody, &voyageResponse); err != nil {
		return nil, errortypes.ProviderCallError(err, "error unmarshaling response").
			WithField("status", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errortypes.ProviderCallError(
			fmt.Errorf("Voyage API error: %s", voyageResponse.Detail),
			"embedding request rejected").
			WithField("status", resp.StatusCode)
	}

	if len(voyageResponse.Data) != len(inputs) {
		return nil, errortypes.ProviderCallError(
			fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(voyageResponse.Data)),
			"incomplete response from Voyage API")
	}

	sort.Slice(voyageResponse.Data, func(i, j int) bool {
		return voyageResponse.Data[i].Index < voyageResponse.Data[j].Index
	})

	vectors := make([][]float32, len(voyageResponse.Data))
	for i, item := range voyageResponse.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

// TestAPIKey checks a candidate credential with a one-item request.
func (p *VoyageProvider) TestAPIKey(ctx context.Context, key string) error {
	if key == "" {
		return errortypes.ValidationError(fmt.Errorf("empty API key"), "cannot test empty key")
	}
	_, err := p.embedChunk(ctx, key, []string{"ping"})
	return err
}
