// Package embed defines the embedding provider abstraction and its
// implementations: an in-process default provider plus Ollama, OpenAI,
// Google, and Cohere HTTP providers.
package embed

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vaultindex/vaultindex/internal/errors"
)

// DefaultHTTPTimeout bounds a single embedding request.
const DefaultHTTPTimeout = 60 * time.Second

// Provider generates vector embeddings for text.
type Provider interface {
	// EmbedBatch generates embeddings for the given texts, one vector
	// per input in the same order. An empty batch returns an empty
	// result without any network traffic.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name ("default", "ollama", ...).
	Name() string

	// Dimensions returns the embedding dimension and whether it is
	// known. Providers that discover the dimension from their first
	// response report known=false until then.
	Dimensions() (int, bool)

	// Remote reports whether embedding calls leave the process.
	// Remote providers are batched through the synchronizer's worker
	// pool; local ones are called inline.
	Remote() bool

	// Close releases provider resources.
	Close() error
}

// transportError classifies a failed HTTP round trip.
func transportError(provider string, err error) error {
	var ne net.Error
	if stderrors.Is(err, context.DeadlineExceeded) ||
		(stderrors.As(err, &ne) && ne.Timeout()) {
		return errors.New(errors.ErrCodeEmbedTimeout,
			fmt.Sprintf("%s embedding request timed out", provider), err)
	}
	return errors.New(errors.ErrCodeEmbedConnection,
		fmt.Sprintf("cannot reach %s embedding API", provider), err)
}

// statusError converts a non-2xx response into an API error.
// The body is truncated to keep error messages bounded.
func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return errors.New(errors.ErrCodeEmbedAPI,
		fmt.Sprintf("%s embedding API returned status %d", provider, resp.StatusCode), nil).
		WithDetail("status", strconv.Itoa(resp.StatusCode)).
		WithDetail("body", strings.TrimSpace(string(body)))
}

// normalizeVector normalizes a vector to unit length.
// Zero vectors are returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
