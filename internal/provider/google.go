package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/semnotes/semnotes/internal/errortypes"
)

const (
	googleAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"

	// googleMaxBatchSize is the maximum requests per batchEmbedContents call.
	googleMaxBatchSize = 100

	googleDefaultModel      = "text-embedding-004"
	googleDefaultDimensions = 768
)

// GoogleProvider implements the Provider interface for Google's Gemini
// embedding models.
type GoogleProvider struct {
	Config
	httpClient *http.Client
}

// GoogleEmbedRequest is one item in a batchEmbedContents request
type GoogleEmbedRequest struct {
	Model   string `json:"model"`
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

// GoogleBatchRequest represents a batchEmbedContents request
type GoogleBatchRequest struct {
	Requests []GoogleEmbedRequest `json:"requests"`
}

// GoogleBatchResponse represents a batchEmbedContents response. The
// embeddings array is ordered the same as the request array.
type GoogleBatchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGoogleProvider creates a new instance of the Google provider
func NewGoogleProvider(config Config) *GoogleProvider {
	if config.ModelID == "" {
		config.ModelID = googleDefaultModel
	}
	if config.Dimensions <= 0 {
		config.Dimensions = googleDefaultDimensions
	}
	return &GoogleProvider{
		Config: config,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

// Model returns the model identifier in use
func (p *GoogleProvider) Model() string {
	return p.ModelID
}

// Dimensions returns the dimensionality of produced vectors
func (p *GoogleProvider) Dimensions() int {
	return p.Config.Dimensions
}

// IsAvailable reports whether an API key is configured
func (p *GoogleProvider) IsAvailable() bool {
	return p.APIKey != ""
}

// Embed converts a single text into a vector
func (p *GoogleProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts texts into vectors, chunking oversized requests.
func (p *GoogleProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !p.IsAvailable() {
		return nil, errortypes.ProviderUnavailableError(
			fmt.Errorf("Google API key not provided"), "embedding provider not configured")
	}

	inputs := normalizeInputs(texts)
	vectors := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += googleMaxBatchSize {
		end := start + googleMaxBatchSize
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

// embedChunk performs one batchEmbedContents call. The API returns
// embeddings in request order, so no re-sort is needed.
func (p *GoogleProvider) embedChunk(ctx context.Context, apiKey string, inputs []string) ([][]float32, error) {
	modelName := "models/" + p.ModelID

	reqBody := GoogleBatchRequest{
		Requests: make([]GoogleEmbedRequest, len(inputs)),
	}
	for i, text := range inputs {
		item := GoogleEmbedRequest{Model: modelName}
		item.Content.Parts = []struct {
			Text string `json:"text"`
		}{{Text: text}}
		reqBody.Requests[i] = item
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %v", err)
	}

	// API key travels in the URL for the Gemini API
	apiURL := fmt.Sprintf("%s/%s:batchEmbedContents?key=%s", googleAPIURL, p.ModelID, apiKey)
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		apiURL,
		strings.NewReader(string(reqJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errortypes.ProviderCallError(err, "error sending request to Google API")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errortypes.ProviderCallError(err, "error reading response body")
	}

	var googleResponse GoogleBatchResponse
	if err := json.Unmarshal(respBody, &googleResponse); err != nil {
		return nil, errortypes.ProviderCallError(err, "error unmarshaling response").
			WithField("status", resp.StatusCode)
	}

	if googleResponse.Error != nil {
		return nil, errortypes.ProviderCallError(
			fmt.Errorf("Google API error: %s: %s", googleResponse.Error.Status, googleResponse.Error.Message),
			"embedding request rejected").
			WithField("status", resp.StatusCode)
	}

	if len(googleResponse.Embeddings) != len(inputs) {
		return nil, errortypes.ProviderCallError(
			fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(googleResponse.Embeddings)),
			"incomplete response from Google API")
	}

	vectors := make([][]float32, len(googleResponse.Embeddings))
	for i, item := range googleResponse.Embeddings {
		vectors[i] = item.Values
	}
	return vectors, nil
}

// TestAPIKey checks a candidate credential with a one-item request.
func (p *GoogleProvider) TestAPIKey(ctx context.Context, key string) error {
	if key == "" {
		return errortypes.ValidationError(fmt.Errorf("empty API key"), "cannot test empty key")
	}
	_, err := p.embedChunk(ctx, key, []string{"ping"})
	return err
}
