package index

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultindex/vaultindex/internal/errors"
	"github.com/vaultindex/vaultindex/internal/vault"
)

// newQueryFixture indexes three notes with known vectors: a.md and
// b.md point along nearby axes, other/c.md along a distinct one.
func newQueryFixture(t *testing.T) (*stubProvider, *QueryEngine) {
	t.Helper()
	provider := newStubProvider(4).
		add("apple text", 0).
		add("banana text", 1).
		add("cherry text", 2).
		add("apple query", 0)
	provider.vecs["almost apple"] = []float32{0.9, 0.1, 0, 0}

	coll := newTestCollection(t, provider)
	syncer := NewSynchronizer(coll, 1, nil)
	t.Cleanup(syncer.Close)

	res := syncer.IndexAll(context.Background(), []vault.Note{
		{Path: "a.md", Content: "apple text", Mtime: 100},
		{Path: "notes/b.md", Content: "almost apple", Mtime: 100},
		{Path: "other/c.md", Content: "cherry text", Mtime: 100},
	})
	require.Empty(t, res.Errors)

	return provider, NewQueryEngine(coll)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	_, engine := newQueryFixture(t)

	results, err := engine.Search(context.Background(), "apple query", 3, "")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a.md", results[0].Path)
	assert.Equal(t, "notes/b.md", results[1].Path)
	assert.Equal(t, "other/c.md", results[2].Path)

	// An identical vector scores 1; an orthogonal one scores 0.
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	assert.InDelta(t, 0.0, results[2].Score, 1e-4)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestSearchResultFields(t *testing.T) {
	_, engine := newQueryFixture(t)

	results, err := engine.Search(context.Background(), "apple query", 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "a.md", r.Path)
	assert.Equal(t, "a", r.Title)
	assert.Equal(t, "", r.Folder)
	assert.Equal(t, "apple text", r.Preview)
	assert.Equal(t, 0, r.ChunkIndex)
	assert.Equal(t, 1, r.TotalChunks)
}

func TestSearchFolderFilter(t *testing.T) {
	_, engine := newQueryFixture(t)

	results, err := engine.Search(context.Background(), "apple query", 5, "notes")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "notes/b.md", results[0].Path)

	// A folder with no chunks is a valid empty answer, not an error.
	results, err = engine.Search(context.Background(), "apple query", 5, "nowhere")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyIndex(t *testing.T) {
	provider := newStubProvider(4).add("query", 0)
	coll := newTestCollection(t, provider)
	engine := NewQueryEngine(coll)

	_, err := engine.Search(context.Background(), "query", 5, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexEmpty, errors.GetCode(err))
}

func TestSearchLimitClamp(t *testing.T) {
	assert.Equal(t, DefaultSearchLimit, clampLimit(0, DefaultSearchLimit))
	assert.Equal(t, DefaultSearchLimit, clampLimit(-3, DefaultSearchLimit))
	assert.Equal(t, 7, clampLimit(7, DefaultSearchLimit))
	assert.Equal(t, MaxSearchLimit, clampLimit(500, DefaultSearchLimit))
}

func TestFindSimilar(t *testing.T) {
	_, engine := newQueryFixture(t)

	results, err := engine.FindSimilar(context.Background(), "a.md", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The source note is excluded; the nearby note ranks first.
	assert.Equal(t, "notes/b.md", results[0].Path)
	assert.Equal(t, "other/c.md", results[1].Path)
	for _, r := range results {
		assert.NotEqual(t, "a.md", r.Path)
	}
}

func TestFindSimilarDedupsByPath(t *testing.T) {
	provider := newStubProvider(4).
		add("source chunk", 0).
		add("twin one", 0).
		add("twin two", 1)
	provider.vecs["twin one"] = []float32{0.9, 0.1, 0, 0}
	provider.vecs["twin two"] = []float32{0.8, 0.2, 0, 0}

	coll := newTestCollection(t, provider)
	syncer := NewSynchronizer(coll, 1, nil)
	t.Cleanup(syncer.Close)

	res := syncer.IndexAll(context.Background(), []vault.Note{
		{Path: "source.md", Content: "source chunk", Mtime: 100},
		{Path: "twin.md", Content: "twin one\n\ntwin two", Mtime: 100},
	})
	require.Empty(t, res.Errors)

	results, err := NewQueryEngine(coll).FindSimilar(context.Background(), "source.md", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Only the best-ranked chunk of twin.md survives.
	assert.Equal(t, "twin.md", results[0].Path)
	assert.Equal(t, 0, results[0].ChunkIndex)
}

func TestFindSimilarNoteNotIndexed(t *testing.T) {
	_, engine := newQueryFixture(t)

	_, err := engine.FindSimilar(context.Background(), "missing.md", 5)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoteNotIndexed, errors.GetCode(err))
}

func TestFindSimilarEmptyIndex(t *testing.T) {
	provider := newStubProvider(4)
	coll := newTestCollection(t, provider)

	_, err := NewQueryEngine(coll).FindSimilar(context.Background(), "a.md", 5)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexEmpty, errors.GetCode(err))
}

func TestPreviewTruncatesLongChunks(t *testing.T) {
	long := strings.Repeat("日", 300)
	got := preview(long)
	assert.Equal(t, 200, len([]rune(got)))

	short := "short chunk"
	assert.Equal(t, short, preview(short))
}

func TestScoreFromDistance(t *testing.T) {
	tests := []struct {
		name     string
		distance float32
		want     float64
	}{
		{"identical", 0, 1},
		{"orthogonal", 1, 0},
		{"opposite clamps to zero", 2, 0},
		{"partial", 0.25, 0.75},
		{"rounds to 4 places", 0.123456, 0.8765},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, scoreFromDistance(tt.distance), 1e-9)
		})
	}
}
