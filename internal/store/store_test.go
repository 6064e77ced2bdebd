package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultindex/vaultindex/internal/errors"
)

func newMemoryCollection(t *testing.T, dims int) *Collection {
	t.Helper()
	engine, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	coll, err := engine.GetOrCreateCollection(context.Background(), "test", dims)
	require.NoError(t, err)
	return coll
}

// basisRecord builds a record whose embedding is a unit vector along
// the given axis, so cosine distances are easy to reason about.
func basisRecord(path string, chunkIndex, totalChunks, dims, axis int) Record {
	vec := make([]float32, dims)
	vec[axis] = 1
	return Record{
		ID:        fmt.Sprintf("%s::%d", path, chunkIndex),
		Document:  fmt.Sprintf("chunk %d of %s", chunkIndex, path),
		Embedding: vec,
		Metadata: Metadata{
			Path:        path,
			Folder:      filepath.Dir(path),
			Title:       "note",
			Mtime:       1700000000,
			ChunkIndex:  chunkIndex,
			TotalChunks: totalChunks,
		},
	}
}

func axisVector(dims, axis int) []float32 {
	vec := make([]float32, dims)
	vec[axis] = 1
	return vec
}

func TestUpsertAndGet(t *testing.T) {
	coll := newMemoryCollection(t, 4)
	ctx := context.Background()

	err := coll.Upsert(ctx, []Record{
		basisRecord("b.md", 0, 1, 4, 0),
		basisRecord("a.md", 1, 2, 4, 1),
		basisRecord("a.md", 0, 2, 4, 2),
	})
	require.NoError(t, err)

	records, err := coll.Get(ctx, Filter{}, false)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Ordered by path then chunk index.
	assert.Equal(t, "a.md::0", records[0].ID)
	assert.Equal(t, "a.md::1", records[1].ID)
	assert.Equal(t, "b.md::0", records[2].ID)
	assert.Nil(t, records[0].Embedding)

	n, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGetIncludesEmbeddingsOnRequest(t *testing.T) {
	coll := newMemoryCollection(t, 4)
	ctx := context.Background()

	require.NoError(t, coll.Upsert(ctx, []Record{basisRecord("a.md", 0, 1, 4, 2)}))

	records, err := coll.Get(ctx, Filter{}, true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []float32{0, 0, 1, 0}, records[0].Embedding)
}

func TestUpsertReplacesExistingChunk(t *testing.T) {
	coll := newMemoryCollection(t, 4)
	ctx := context.Background()

	rec := basisRecord("a.md", 0, 1, 4, 0)
	require.NoError(t, coll.Upsert(ctx, []Record{rec}))

	rec.Document = "updated text"
	rec.Embedding = axisVector(4, 3)
	require.NoError(t, coll.Upsert(ctx, []Record{rec}))

	n, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := coll.Get(ctx, Filter{}, true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "updated text", records[0].Document)
	assert.Equal(t, []float32{0, 0, 0, 1}, records[0].Embedding)

	// Queries see the new vector, not the old one.
	matches, err := coll.Query(ctx, axisVector(4, 3), 1, Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.md::0", matches[0].Record.ID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-5)
}

func TestUpsertRejectsWrongDimensions(t *testing.T) {
	coll := newMemoryCollection(t, 4)

	rec := basisRecord("a.md", 0, 1, 8, 0)
	err := coll.Upsert(context.Background(), []Record{rec})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
}

func TestGetWithFilter(t *testing.T) {
	coll := newMemoryCollection(t, 4)
	ctx := context.Background()

	require.NoError(t, coll.Upsert(ctx, []Record{
		basisRecord("notes/a.md", 0, 2, 4, 0),
		basisRecord("notes/a.md", 1, 2, 4, 1),
		basisRecord("other/b.md", 0, 1, 4, 2),
	}))

	path := "notes/a.md"
	records, err := coll.Get(ctx, Filter{Path: &path}, false)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	folder := "other"
	records, err = coll.Get(ctx, Filter{Folder: &folder}, false)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "other/b.md::0", records[0].ID)

	first := 0
	records, err = coll.Get(ctx, Filter{Path: &path, ChunkIndex: &first}, false)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "notes/a.md::0", records[0].ID)
}

func TestQueryOrdersByDistance(t *testing.T) {
	coll := newMemoryCollection(t, 4)
	ctx := context.Background()

	similar := basisRecord("similar.md", 0, 1, 4, 0)
	similar.Embedding = []float32{0.9, 0.1, 0, 0}
	far := basisRecord("far.md", 0, 1, 4, 1)

	require.NoError(t, coll.Upsert(ctx, []Record{far, similar}))

	matches, err := coll.Query(ctx, axisVector(4, 0), 2, Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "similar.md::0", matches[0].Record.ID)
	assert.Equal(t, "far.md::0", matches[1].Record.ID)
	assert.Less(t, matches[0].Distance, matches[1].Distance)
}

func TestQueryWithFolderFilter(t *testing.T) {
	coll := newMemoryCollection(t, 4)
	ctx := context.Background()

	var records []Record
	for i := 0; i < 4; i++ {
		r := basisRecord(fmt.Sprintf("work/n%d.md", i), 0, 1, 4, i)
		records = append(records, r)
	}
	personal := basisRecord("personal/p.md", 0, 1, 4, 0)
	personal.ID = "personal/p.md::0"
	records = append(records, personal)
	require.NoError(t, coll.Upsert(ctx, records))

	folder := "personal"
	matches, err := coll.Query(ctx, axisVector(4, 0), 3, Filter{Folder: &folder})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "personal/p.md::0", matches[0].Record.ID)
}

func TestQueryEmptyCollection(t *testing.T) {
	coll := newMemoryCollection(t, 4)

	matches, err := coll.Query(context.Background(), axisVector(4, 0), 5, Filter{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryRejectsWrongDimensions(t *testing.T) {
	coll := newMemoryCollection(t, 4)
	ctx := context.Background()
	require.NoError(t, coll.Upsert(ctx, []Record{basisRecord("a.md", 0, 1, 4, 0)}))

	_, err := coll.Query(ctx, axisVector(8, 0), 1, Filter{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
}

func TestDeleteRemovesFromQueries(t *testing.T) {
	coll := newMemoryCollection(t, 4)
	ctx := context.Background()

	require.NoError(t, coll.Upsert(ctx, []Record{
		basisRecord("a.md", 0, 2, 4, 0),
		basisRecord("a.md", 1, 2, 4, 1),
		basisRecord("b.md", 0, 1, 4, 2),
	}))

	require.NoError(t, coll.Delete(ctx, []string{"a.md::0", "a.md::1"}))

	n, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	matches, err := coll.Query(ctx, axisVector(4, 0), 3, Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b.md::0", matches[0].Record.ID)

	// Deleting already-deleted chunks is a no-op.
	require.NoError(t, coll.Delete(ctx, []string{"a.md::0", "missing::9"}))
}

func TestStats(t *testing.T) {
	coll := newMemoryCollection(t, 4)
	ctx := context.Background()

	stats, err := coll.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	older := basisRecord("a.md", 0, 1, 4, 0)
	older.Metadata.Mtime = 1600000000
	newer := basisRecord("b.md", 0, 2, 4, 1)
	newer.Metadata.Mtime = 1700000000
	second := basisRecord("b.md", 1, 2, 4, 2)
	second.Metadata.Mtime = 1700000000
	require.NoError(t, coll.Upsert(ctx, []Record{older, newer, second}))

	stats, err = coll.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, 2, stats.Notes)
	assert.Equal(t, int64(1700000000), stats.LastMtime)
}

func TestGetCollectionUsesStoredDimensions(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine, err := Open(dir)
	require.NoError(t, err)

	// Nothing stored yet.
	_, exists, err := engine.GetCollection(ctx, "notes")
	require.NoError(t, err)
	assert.False(t, exists)

	created, err := engine.GetOrCreateCollection(ctx, "notes", 1024)
	require.NoError(t, err)
	require.NoError(t, created.Upsert(ctx, []Record{basisRecord("a.md", 0, 1, 1024, 0)}))
	require.NoError(t, engine.Close())

	// A process that does not know the embedding dimension reads it
	// from the collection metadata instead of guessing.
	engine, err = Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	coll, exists, err := engine.GetCollection(ctx, "notes")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, 1024, coll.Dimensions())

	count, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetCollectionInMemoryOnlyWhileCached(t *testing.T) {
	engine, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	ctx := context.Background()

	_, exists, err := engine.GetCollection(ctx, "notes")
	require.NoError(t, err)
	assert.False(t, exists)

	created, err := engine.GetOrCreateCollection(ctx, "notes", 4)
	require.NoError(t, err)

	coll, exists, err := engine.GetCollection(ctx, "notes")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Same(t, created, coll)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine, err := Open(dir)
	require.NoError(t, err)

	coll, err := engine.GetOrCreateCollection(ctx, "vault_notes", 4)
	require.NoError(t, err)
	require.NoError(t, coll.Upsert(ctx, []Record{
		basisRecord("a.md", 0, 1, 4, 0),
		basisRecord("b.md", 0, 1, 4, 1),
	}))
	require.NoError(t, engine.Close())

	engine, err = Open(dir)
	require.NoError(t, err)
	defer engine.Close()

	coll, err = engine.GetOrCreateCollection(ctx, "vault_notes", 4)
	require.NoError(t, err)

	n, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The graph is rebuilt from SQLite, so queries work immediately.
	matches, err := coll.Query(ctx, axisVector(4, 1), 1, Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b.md::0", matches[0].Record.ID)
}

func TestReopenWithDifferentDimensionsFails(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine, err := Open(dir)
	require.NoError(t, err)
	_, err = engine.GetOrCreateCollection(ctx, "vault_notes", 384)
	require.NoError(t, err)
	require.NoError(t, engine.Close())

	engine, err = Open(dir)
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.GetOrCreateCollection(ctx, "vault_notes", 768)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
}

func TestGetOrCreateReturnsSameCollection(t *testing.T) {
	engine, err := Open("")
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()
	a, err := engine.GetOrCreateCollection(ctx, "vault_notes", 4)
	require.NoError(t, err)
	b, err := engine.GetOrCreateCollection(ctx, "vault_notes", 4)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = engine.GetOrCreateCollection(ctx, "vault_notes", 8)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
}

func TestDeleteCollection(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine, err := Open(dir)
	require.NoError(t, err)
	defer engine.Close()

	coll, err := engine.GetOrCreateCollection(ctx, "vault_notes", 4)
	require.NoError(t, err)
	require.NoError(t, coll.Upsert(ctx, []Record{basisRecord("a.md", 0, 1, 4, 0)}))

	require.NoError(t, engine.DeleteCollection("vault_notes"))

	// Deleting a collection that does not exist is fine.
	require.NoError(t, engine.DeleteCollection("vault_notes"))
	require.NoError(t, engine.DeleteCollection("never_created"))

	// Recreating starts empty with fresh dimensions.
	coll, err = engine.GetOrCreateCollection(ctx, "vault_notes", 8)
	require.NoError(t, err)
	n, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInvalidCollectionName(t *testing.T) {
	engine, err := Open("")
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.GetOrCreateCollection(context.Background(), "../escape", 4)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStoreFailed, errors.GetCode(err))
}

func TestFilterMatches(t *testing.T) {
	m := Metadata{Path: "notes/a.md", Folder: "notes", ChunkIndex: 1}

	path, wrongPath := "notes/a.md", "other.md"
	folder := "notes"
	idx, wrongIdx := 1, 0

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty matches", Filter{}, true},
		{"path match", Filter{Path: &path}, true},
		{"path mismatch", Filter{Path: &wrongPath}, false},
		{"folder match", Filter{Folder: &folder}, true},
		{"chunk index match", Filter{ChunkIndex: &idx}, true},
		{"chunk index mismatch", Filter{ChunkIndex: &wrongIdx}, false},
		{"combined", Filter{Path: &path, Folder: &folder, ChunkIndex: &idx}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(m))
		})
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 0, 3.75}
	assert.Equal(t, vec, decodeVector(encodeVector(vec)))
	assert.Empty(t, decodeVector(encodeVector(nil)))
}
