package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"
)

// DefaultDimensions is the embedding dimension of the default provider.
const DefaultDimensions = 384

// Weights for vector generation
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// englishStopWords are filtered before hashing tokens. Without this,
// high-frequency words dominate the vectors and every note looks alike.
var englishStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "is": true, "it": true,
	"that": true, "this": true, "with": true, "for": true, "as": true,
	"on": true, "at": true, "be": true, "are": true, "was": true,
	"were": true, "by": true, "from": true, "not": true,
}

// tokenRegex matches alphanumeric sequences
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// DefaultProvider generates embeddings with a hash-based approach.
// It needs no external service or model download and is fully
// deterministic, at the cost of reduced semantic quality. Tokens are
// hashed into the vector with weight 0.7 and character trigrams with
// weight 0.3, then the vector is normalized to unit length.
type DefaultProvider struct{}

// NewDefaultProvider creates the in-process default provider.
func NewDefaultProvider() *DefaultProvider {
	return &DefaultProvider{}
}

// EmbedBatch generates embeddings for multiple texts.
func (p *DefaultProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = p.embed(text)
	}
	return results, nil
}

// embed generates the vector for a single text.
func (p *DefaultProvider) embed(text string) []float32 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, DefaultDimensions)
	}

	vector := make([]float32, DefaultDimensions)

	for _, token := range tokenize(trimmed) {
		index := hashToIndex(token, DefaultDimensions)
		vector[index] += tokenWeight
	}

	normalized := normalizeForNgrams(trimmed)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		index := hashToIndex(ngram, DefaultDimensions)
		vector[index] += ngramWeight
	}

	return normalizeVector(vector)
}

// tokenize splits text into lowercase tokens with stop words removed.
func tokenize(text string) []string {
	words := tokenRegex.FindAllString(text, -1)

	var tokens []string
	for _, word := range words {
		lower := strings.ToLower(word)
		if !englishStopWords[lower] {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

// normalizeForNgrams prepares text for n-gram extraction.
func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// extractNgrams extracts n-character sliding windows.
func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}

	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

// hashToIndex uses FNV-64 to map a string to a vector index.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// Name returns the provider name.
func (p *DefaultProvider) Name() string { return "default" }

// Dimensions returns the fixed embedding dimension.
func (p *DefaultProvider) Dimensions() (int, bool) { return DefaultDimensions, true }

// Remote reports that embedding happens in-process.
func (p *DefaultProvider) Remote() bool { return false }

// Close releases resources. The default provider holds none.
func (p *DefaultProvider) Close() error { return nil }
