package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vaultindex/vaultindex/internal/errors"
)

// Google defaults.
const (
	defaultGoogleBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGoogleModel   = "text-embedding-004"

	// GoogleDimensions is the output dimension of the Gemini text
	// embedding models.
	GoogleDimensions = 768
)

// GoogleProvider generates embeddings through the Gemini API's
// batchEmbedContents endpoint.
type GoogleProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	retry   errors.RetryConfig
}

// NewGoogleProvider creates a Google provider. The key is required at
// construction.
func NewGoogleProvider(apiKey, model string) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeConfigMissingKey,
			"Google API key is required", nil).
			WithSuggestion("set GOOGLE_API_KEY or index.google_key")
	}
	if model == "" {
		model = DefaultGoogleModel
	}
	return &GoogleProvider{
		client:  &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL: defaultGoogleBaseURL,
		apiKey:  apiKey,
		model:   model,
		retry:   errors.DefaultRetryConfig(),
	}, nil
}

type googleEmbedRequest struct {
	Requests []googleEmbedContent `json:"requests"`
}

type googleEmbedContent struct {
	Model   string `json:"model"`
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

type googleEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (p *GoogleProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return errors.RetryWithResult(ctx, p.retry, func() ([][]float32, error) {
		return p.embedBatch(ctx, texts)
	})
}

func (p *GoogleProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := googleEmbedRequest{Requests: make([]googleEmbedContent, len(texts))}
	for i, text := range texts {
		c := googleEmbedContent{Model: "models/" + p.model}
		c.Content.Parts = []struct {
			Text string `json:"text"`
		}{{Text: text}}
		reqBody.Requests[i] = c
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents?key=%s",
		p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, transportError("google", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("google", resp)
	}

	var result googleEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.New(errors.ErrCodeEmbedAPI,
			"failed to decode google response", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, errors.New(errors.ErrCodeEmbedAPI,
			fmt.Sprintf("google returned %d embeddings for %d texts",
				len(result.Embeddings), len(texts)), nil)
	}

	embeddings := make([][]float32, len(texts))
	for i, e := range result.Embeddings {
		embeddings[i] = e.Values
	}
	return embeddings, nil
}

// Name returns the provider name.
func (p *GoogleProvider) Name() string { return "google" }

// Dimensions returns the model's output dimension.
func (p *GoogleProvider) Dimensions() (int, bool) { return GoogleDimensions, true }

// Remote reports that embedding calls leave the process.
func (p *GoogleProvider) Remote() bool { return true }

// Close releases idle connections.
func (p *GoogleProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
