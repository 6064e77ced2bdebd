package index

import (
	"context"
	"fmt"
	"math"

	"github.com/vaultindex/vaultindex/internal/errors"
	"github.com/vaultindex/vaultindex/internal/store"
)

const (
	// DefaultSearchLimit is used when the caller passes a
	// non-positive limit.
	DefaultSearchLimit = 10

	// MaxSearchLimit caps the number of results per query.
	MaxSearchLimit = 100

	// DefaultSimilarLimit is the default for FindSimilar.
	DefaultSimilarLimit = 5

	// similarFetchCap bounds the over-fetch FindSimilar uses to
	// absorb the source note and duplicate chunks.
	similarFetchCap = 60

	// previewRunes is the length of the content preview in results.
	previewRunes = 200
)

// SearchResult is one ranked hit.
type SearchResult struct {
	Path        string  `json:"path"`
	Title       string  `json:"title"`
	Folder      string  `json:"folder"`
	Score       float64 `json:"score"`
	Preview     string  `json:"preview"`
	ChunkIndex  int     `json:"chunk_index"`
	TotalChunks int     `json:"total_chunks"`
}

// QueryEngine answers similarity queries against a collection.
type QueryEngine struct {
	coll *Collection
}

// NewQueryEngine wraps a collection for querying.
func NewQueryEngine(coll *Collection) *QueryEngine {
	return &QueryEngine{coll: coll}
}

// Search embeds the query text and returns up to limit chunks
// ranked by similarity, optionally restricted to one folder. An
// empty index is an error; an index with no matching chunks returns
// an empty result.
//
// Multiple chunks of one note may appear in the same result set.
func (q *QueryEngine) Search(ctx context.Context, query string, limit int, folder string) ([]SearchResult, error) {
	limit = clampLimit(limit, DefaultSearchLimit)

	coll, err := q.openNonEmpty(ctx)
	if err != nil {
		return nil, err
	}

	vectors, err := q.coll.Provider().EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, errors.New(errors.ErrCodeEmbedAPI,
			fmt.Sprintf("provider returned %d vectors for one query", len(vectors)), nil)
	}

	var filter store.Filter
	if folder != "" {
		filter.Folder = &folder
	}
	matches, err := coll.Query(ctx, vectors[0], limit, filter)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, toResult(m))
	}
	return results, nil
}

// FindSimilar ranks notes by similarity to the given note, using the
// stored embedding of its first chunk as the query vector. The
// source note is excluded and each remaining note appears once, at
// its best-ranked chunk.
func (q *QueryEngine) FindSimilar(ctx context.Context, path string, limit int) ([]SearchResult, error) {
	limit = clampLimit(limit, DefaultSimilarLimit)

	coll, err := q.openNonEmpty(ctx)
	if err != nil {
		return nil, err
	}

	first := 0
	source, err := coll.Get(ctx, store.Filter{Path: &path, ChunkIndex: &first}, true)
	if err != nil {
		return nil, err
	}
	if len(source) == 0 {
		return nil, errors.NoteNotIndexed(path)
	}

	fetch := limit + 10
	if fetch > similarFetchCap {
		fetch = similarFetchCap
	}
	matches, err := coll.Query(ctx, source[0].Embedding, fetch, store.Filter{})
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, limit)
	seen := make(map[string]bool)
	for _, m := range matches {
		p := m.Record.Metadata.Path
		if p == path || seen[p] {
			continue
		}
		seen[p] = true
		results = append(results, toResult(m))
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// openNonEmpty opens the store collection and fails with an
// index-empty error when it is missing or holds no chunks.
func (q *QueryEngine) openNonEmpty(ctx context.Context) (*store.Collection, error) {
	coll, exists, err := q.coll.openExisting(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.IndexEmpty(q.coll.Name())
	}
	count, err := coll.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.IndexEmpty(q.coll.Name())
	}
	return coll, nil
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return limit
}

func toResult(m store.Match) SearchResult {
	return SearchResult{
		Path:        m.Record.Metadata.Path,
		Title:       m.Record.Metadata.Title,
		Folder:      m.Record.Metadata.Folder,
		Score:       scoreFromDistance(m.Distance),
		Preview:     preview(m.Record.Document),
		ChunkIndex:  m.Record.Metadata.ChunkIndex,
		TotalChunks: m.Record.Metadata.TotalChunks,
	}
}

// scoreFromDistance maps cosine distance to a similarity score in
// [0, 1], rounded to 4 decimal places.
func scoreFromDistance(d float32) float64 {
	score := 1 - float64(d)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*10000) / 10000
}

// preview returns the first 200 runes of a chunk.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes])
}
