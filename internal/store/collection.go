package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/coder/hnsw"
	_ "modernc.org/sqlite"

	"github.com/vaultindex/vaultindex/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	document     TEXT NOT NULL,
	embedding    BLOB NOT NULL,
	path         TEXT NOT NULL,
	folder       TEXT NOT NULL,
	title        TEXT NOT NULL,
	mtime        INTEGER NOT NULL,
	chunk_index  INTEGER NOT NULL,
	total_chunks INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);
`

// Collection is one named set of embedded chunks. SQLite is the
// source of truth; the HNSW graph indexes the same vectors in memory
// and is rebuilt from SQLite when the collection is opened.
//
// Deleted and replaced vectors are removed from the id maps but left
// in the graph (lazy deletion). Search skips keys that no longer map
// to a chunk id, and the stale nodes disappear on the next reopen.
type Collection struct {
	name string
	dims int
	db   *sql.DB

	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
	stale   int
}

func openCollection(ctx context.Context, name, path string, dims int) (*Collection, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.StoreError(
			fmt.Sprintf("failed to open collection %q", name), err)
	}

	// modernc.org/sqlite ignores pragmas in the DSN, so set them
	// explicitly. A single connection avoids SQLITE_BUSY on writes.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.StoreError(
				fmt.Sprintf("failed to configure collection %q", name), err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.New(errors.ErrCodeStoreCorrupt,
			fmt.Sprintf("failed to initialize schema for collection %q", name), err)
	}

	dims, err = resolveDimensions(ctx, db, name, dims)
	if err != nil {
		db.Close()
		return nil, err
	}

	c := &Collection{
		name:   name,
		dims:   dims,
		db:     db,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
	c.resetGraph()
	if err := c.rebuildGraph(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// resolveDimensions returns the collection's embedding dimension.
// A positive dims records it on first open and rejects a mismatch on
// later opens; dims <= 0 reads the stored value, so an existing
// collection can be opened without knowing its dimension up front.
func resolveDimensions(ctx context.Context, db *sql.DB, name string, dims int) (int, error) {
	var stored string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'dimensions'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		if dims <= 0 {
			return 0, errors.New(errors.ErrCodeStoreCorrupt,
				fmt.Sprintf("collection %q has no dimensions metadata", name), nil)
		}
		_, err = db.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES ('dimensions', ?)`,
			strconv.Itoa(dims))
		if err != nil {
			return 0, errors.StoreError(
				fmt.Sprintf("failed to record dimensions for collection %q", name), err)
		}
		return dims, nil
	case err != nil:
		return 0, errors.StoreError(
			fmt.Sprintf("failed to read metadata for collection %q", name), err)
	}

	have, err := strconv.Atoi(stored)
	if err != nil {
		return 0, errors.New(errors.ErrCodeStoreCorrupt,
			fmt.Sprintf("collection %q has invalid dimensions metadata %q", name, stored), err)
	}
	if dims > 0 && have != dims {
		return 0, DimensionMismatch(name, have, dims)
	}
	return have, nil
}

func (c *Collection) resetGraph() {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	c.graph = g
	c.idMap = make(map[string]uint64)
	c.keyMap = make(map[uint64]string)
	c.nextKey = 0
	c.stale = 0
}

func (c *Collection) rebuildGraph(ctx context.Context) error {
	rows, err := c.db.QueryContext(ctx, `SELECT id, embedding FROM chunks`)
	if err != nil {
		return errors.StoreError(
			fmt.Sprintf("failed to load vectors for collection %q", c.name), err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return errors.New(errors.ErrCodeStoreCorrupt,
				fmt.Sprintf("failed to scan vector in collection %q", c.name), err)
		}
		vec := decodeVector(blob)
		if len(vec) != c.dims {
			return errors.New(errors.ErrCodeStoreCorrupt,
				fmt.Sprintf("chunk %q in collection %q has %d dimensions, expected %d",
					id, c.name, len(vec), c.dims), nil)
		}
		c.addNode(id, vec)
	}
	if err := rows.Err(); err != nil {
		return errors.StoreError(
			fmt.Sprintf("failed to load vectors for collection %q", c.name), err)
	}
	return nil
}

// addNode inserts a vector under a fresh key. Callers hold the write
// lock (or have exclusive access during open).
func (c *Collection) addNode(id string, vec []float32) {
	if old, ok := c.idMap[id]; ok {
		delete(c.keyMap, old)
		c.stale++
	}
	key := c.nextKey
	c.nextKey++
	c.idMap[id] = key
	c.keyMap[key] = id
	c.graph.Add(hnsw.MakeNode(key, normalized(vec)))
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Dimensions returns the embedding dimension the collection stores.
func (c *Collection) Dimensions() int { return c.dims }

// Upsert stores records, replacing any existing chunks with the same
// IDs. Every embedding must match the collection dimension.
func (c *Collection) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if len(r.Embedding) != c.dims {
			return errors.New(errors.ErrCodeDimensionMismatch,
				fmt.Sprintf("chunk %q has %d dimensions, collection %q expects %d",
					r.ID, len(r.Embedding), c.name, c.dims), nil)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StoreError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	del, err := tx.PrepareContext(ctx, `DELETE FROM chunks WHERE id = ?`)
	if err != nil {
		return errors.StoreError("failed to prepare delete", err)
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document, embedding, path, folder, title, mtime, chunk_index, total_chunks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.StoreError("failed to prepare insert", err)
	}
	defer ins.Close()

	for _, r := range records {
		if _, err := del.ExecContext(ctx, r.ID); err != nil {
			return errors.StoreError(
				fmt.Sprintf("failed to replace chunk %q", r.ID), err)
		}
		m := r.Metadata
		_, err := ins.ExecContext(ctx, r.ID, r.Document, encodeVector(r.Embedding),
			m.Path, m.Folder, m.Title, m.Mtime, m.ChunkIndex, m.TotalChunks)
		if err != nil {
			return errors.StoreError(
				fmt.Sprintf("failed to store chunk %q", r.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.StoreError("failed to commit upsert", err)
	}

	for _, r := range records {
		c.addNode(r.ID, r.Embedding)
	}
	return nil
}

// Get returns stored records matching the filter, ordered by path and
// chunk index. Embeddings are loaded only when includeEmbeddings is
// set.
func (c *Collection) Get(ctx context.Context, filter Filter, includeEmbeddings bool) ([]Record, error) {
	cols := "id, document, path, folder, title, mtime, chunk_index, total_chunks"
	if includeEmbeddings {
		cols += ", embedding"
	}

	var where []string
	var args []any
	if filter.Path != nil {
		where = append(where, "path = ?")
		args = append(args, *filter.Path)
	}
	if filter.Folder != nil {
		where = append(where, "folder = ?")
		args = append(args, *filter.Folder)
	}
	if filter.ChunkIndex != nil {
		where = append(where, "chunk_index = ?")
		args = append(args, *filter.ChunkIndex)
	}

	query := "SELECT " + cols + " FROM chunks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY path, chunk_index"

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StoreError(
			fmt.Sprintf("failed to read collection %q", c.name), err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var blob []byte
		dest := []any{&r.ID, &r.Document, &r.Metadata.Path, &r.Metadata.Folder,
			&r.Metadata.Title, &r.Metadata.Mtime, &r.Metadata.ChunkIndex,
			&r.Metadata.TotalChunks}
		if includeEmbeddings {
			dest = append(dest, &blob)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.StoreError(
				fmt.Sprintf("failed to scan chunk in collection %q", c.name), err)
		}
		if includeEmbeddings {
			r.Embedding = decodeVector(blob)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreError(
			fmt.Sprintf("failed to read collection %q", c.name), err)
	}
	return records, nil
}

// Delete removes chunks by ID. Unknown IDs are ignored.
func (c *Collection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return errors.StoreError(
			fmt.Sprintf("failed to delete chunks from collection %q", c.name), err)
	}

	for _, id := range ids {
		if key, ok := c.idMap[id]; ok {
			delete(c.idMap, id)
			delete(c.keyMap, key)
			c.stale++
		}
	}
	return nil
}

// Query returns the k nearest stored chunks to vec by cosine
// distance, nearest first. A non-empty filter is applied after the
// graph search, with the candidate set widened to compensate.
func (c *Collection) Query(ctx context.Context, vec []float32, k int, filter Filter) ([]Match, error) {
	if len(vec) != c.dims {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query vector has %d dimensions, collection %q expects %d",
				len(vec), c.name, c.dims), nil)
	}
	if k <= 0 {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.idMap) == 0 {
		return nil, nil
	}

	// Stale nodes still occupy graph slots, and post-filtering throws
	// candidates away, so ask for more than k.
	fetch := k + c.stale
	if !filter.Empty() {
		fetch += k * 4
	}
	if fetch > c.graph.Len() {
		fetch = c.graph.Len()
	}

	query := normalized(vec)
	nodes := c.graph.Search(query, fetch)

	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if id, ok := c.keyMap[node.Key]; ok {
			ids = append(ids, id)
		}
	}
	byID, err := c.recordsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, k)
	for _, node := range nodes {
		id, ok := c.keyMap[node.Key]
		if !ok {
			continue
		}
		rec, ok := byID[id]
		if !ok {
			continue
		}
		if !filter.Matches(rec.Metadata) {
			continue
		}
		matches = append(matches, Match{
			Record:   rec,
			Distance: c.graph.Distance(query, node.Value),
		})
		if len(matches) == k {
			break
		}
	}
	return matches, nil
}

// recordsByID loads chunks for a set of IDs without embeddings.
// Callers hold at least the read lock.
func (c *Collection) recordsByID(ctx context.Context, ids []string) (map[string]Record, error) {
	if len(ids) == 0 {
		return map[string]Record{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, document, path, folder, title, mtime, chunk_index, total_chunks
		FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, errors.StoreError(
			fmt.Sprintf("failed to read collection %q", c.name), err)
	}
	defer rows.Close()

	byID := make(map[string]Record, len(ids))
	for rows.Next() {
		var r Record
		err := rows.Scan(&r.ID, &r.Document, &r.Metadata.Path, &r.Metadata.Folder,
			&r.Metadata.Title, &r.Metadata.Mtime, &r.Metadata.ChunkIndex,
			&r.Metadata.TotalChunks)
		if err != nil {
			return nil, errors.StoreError(
				fmt.Sprintf("failed to scan chunk in collection %q", c.name), err)
		}
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreError(
			fmt.Sprintf("failed to read collection %q", c.name), err)
	}
	return byID, nil
}

// Count returns the number of stored chunks.
func (c *Collection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	if err != nil {
		return 0, errors.StoreError(
			fmt.Sprintf("failed to count collection %q", c.name), err)
	}
	return n, nil
}

// Stats summarizes the collection for status reporting.
func (c *Collection) Stats(ctx context.Context) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s Stats
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT path), COALESCE(MAX(mtime), 0)
		FROM chunks`).Scan(&s.Documents, &s.Notes, &s.LastMtime)
	if err != nil {
		return Stats{}, errors.StoreError(
			fmt.Sprintf("failed to read stats for collection %q", c.name), err)
	}
	return s, nil
}

// Close closes the underlying database.
func (c *Collection) Close() error {
	if err := c.db.Close(); err != nil {
		return errors.StoreError(
			fmt.Sprintf("failed to close collection %q", c.name), err)
	}
	return nil
}

// normalized returns a unit-length copy of v. Zero vectors are
// returned as-is.
func normalized(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = f / norm
	}
	return out
}
