package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/vaultindex/vaultindex/internal/errors"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"

	// FallbackOllamaDimensions is reported before the real dimension
	// has been learned from a response.
	FallbackOllamaDimensions = 768
)

// OllamaProvider generates embeddings using a local Ollama server.
// The /api/embeddings endpoint accepts only one prompt per request,
// so a batch is a sequence of calls. The embedding dimension is not
// known until the first successful response.
type OllamaProvider struct {
	client *http.Client
	host   string
	model  string
	retry  errors.RetryConfig

	mu   sync.Mutex
	dims int
}

// NewOllamaProvider creates an Ollama provider. Empty host or model
// fall back to the defaults. No connection is made until the first
// embedding call.
func NewOllamaProvider(host, model string) *OllamaProvider {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		client: &http.Client{Timeout: DefaultHTTPTimeout},
		host:   strings.TrimRight(host, "/"),
		model:  model,
		retry:  errors.DefaultRetryConfig(),
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedBatch generates embeddings for multiple texts.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := errors.RetryWithResult(ctx, p.retry, func() ([]float32, error) {
			return p.embedOne(ctx, text)
		})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d of %d: %w", i+1, len(texts), err)
		}
		results[i] = vec
	}
	return results, nil
}

// embedOne performs a single /api/embeddings request.
func (p *OllamaProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, transportError("ollama", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("ollama", resp)
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.New(errors.ErrCodeEmbedAPI,
			"failed to decode ollama response", err)
	}
	if len(result.Embedding) == 0 {
		return nil, errors.New(errors.ErrCodeEmbedAPI,
			"ollama returned an empty embedding", nil)
	}

	p.mu.Lock()
	if p.dims == 0 {
		p.dims = len(result.Embedding)
	}
	p.mu.Unlock()

	return normalizeVector(result.Embedding), nil
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string { return "ollama" }

// Dimensions returns the learned dimension, or the fallback with
// known=false before any response has been seen.
func (p *OllamaProvider) Dimensions() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dims == 0 {
		return FallbackOllamaDimensions, false
	}
	return p.dims, true
}

// Remote reports that embedding calls leave the process.
func (p *OllamaProvider) Remote() bool { return true }

// Close releases idle connections.
func (p *OllamaProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
