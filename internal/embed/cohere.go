package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vaultindex/vaultindex/internal/errors"
)

// Cohere defaults.
const (
	defaultCohereBaseURL = "https://api.cohere.com"
	DefaultCohereModel   = "embed-english-v3.0"
)

// cohereDimensions maps known models to their output dimension.
var cohereDimensions = map[string]int{
	"embed-english-v3.0":       1024,
	"embed-english-light-v3.0": 384,
	"embed-multilingual-v3.0":  1024,
}

// CohereProvider generates embeddings through the Cohere embed API.
type CohereProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	dims    int
	retry   errors.RetryConfig
}

// NewCohereProvider creates a Cohere provider. The key is required at
// construction.
func NewCohereProvider(apiKey, model string) (*CohereProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeConfigMissingKey,
			"Cohere API key is required", nil).
			WithSuggestion("set COHERE_API_KEY or index.cohere_key")
	}
	if model == "" {
		model = DefaultCohereModel
	}
	dims, ok := cohereDimensions[model]
	if !ok {
		dims = 1024
	}
	return &CohereProvider{
		client:  &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL: defaultCohereBaseURL,
		apiKey:  apiKey,
		model:   model,
		dims:    dims,
		retry:   errors.DefaultRetryConfig(),
	}, nil
}

type cohereEmbedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (p *CohereProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return errors.RetryWithResult(ctx, p.retry, func() ([][]float32, error) {
		return p.embedBatch(ctx, texts)
	})
}

func (p *CohereProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(cohereEmbedRequest{
		Model:     p.model,
		Texts:     texts,
		InputType: "search_document",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, transportError("cohere", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("cohere", resp)
	}

	var result cohereEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.New(errors.ErrCodeEmbedAPI,
			"failed to decode cohere response", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, errors.New(errors.ErrCodeEmbedAPI,
			fmt.Sprintf("cohere returned %d embeddings for %d texts",
				len(result.Embeddings), len(texts)), nil)
	}
	return result.Embeddings, nil
}

// Name returns the provider name.
func (p *CohereProvider) Name() string { return "cohere" }

// Dimensions returns the model's output dimension.
func (p *CohereProvider) Dimensions() (int, bool) { return p.dims, true }

// Remote reports that embedding calls leave the process.
func (p *CohereProvider) Remote() bool { return true }

// Close releases idle connections.
func (p *CohereProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
