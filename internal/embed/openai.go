package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vaultindex/vaultindex/internal/errors"
)

// OpenAI defaults.
const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	DefaultOpenAIModel   = "text-embedding-3-small"
)

// openAIDimensions maps known models to their output dimension.
var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIProvider generates embeddings through the OpenAI embeddings
// API. A whole batch goes out in a single request.
type OpenAIProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	dims    int
	retry   errors.RetryConfig
}

// NewOpenAIProvider creates an OpenAI provider. The key is required
// at construction so a misconfiguration fails before any indexing
// work starts.
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeConfigMissingKey,
			"OpenAI API key is required", nil).
			WithSuggestion("set OPENAI_API_KEY or index.openai_key")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	dims, ok := openAIDimensions[model]
	if !ok {
		dims = 1536
	}
	return &OpenAIProvider{
		client:  &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL: defaultOpenAIBaseURL,
		apiKey:  apiKey,
		model:   model,
		dims:    dims,
		retry:   errors.DefaultRetryConfig(),
	}, nil
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return errors.RetryWithResult(ctx, p.retry, func() ([][]float32, error) {
		return p.embedBatch(ctx, texts)
	})
}

func (p *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, transportError("openai", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("openai", resp)
	}

	var result openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.New(errors.ErrCodeEmbedAPI,
			"failed to decode openai response", err)
	}
	if len(result.Data) != len(texts) {
		return nil, errors.New(errors.ErrCodeEmbedAPI,
			fmt.Sprintf("openai returned %d embeddings for %d texts",
				len(result.Data), len(texts)), nil)
	}

	// Responses carry an index field; do not assume order
	embeddings := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, errors.New(errors.ErrCodeEmbedAPI,
				fmt.Sprintf("openai returned out-of-range index %d", d.Index), nil)
		}
		embeddings[d.Index] = d.Embedding
	}
	return embeddings, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// Dimensions returns the model's output dimension.
func (p *OpenAIProvider) Dimensions() (int, bool) { return p.dims, true }

// Remote reports that embedding calls leave the process.
func (p *OpenAIProvider) Remote() bool { return true }

// Close releases idle connections.
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
