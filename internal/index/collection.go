// Package index ties the vault, chunker, embedding provider, and
// vector store together: it turns notes into embedded chunks, keeps
// the stored set in sync with the vault, and answers similarity
// queries.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/vaultindex/vaultindex/internal/chunk"
	"github.com/vaultindex/vaultindex/internal/embed"
	"github.com/vaultindex/vaultindex/internal/errors"
	"github.com/vaultindex/vaultindex/internal/store"
)

// Collection indexes notes into one named store collection.
//
// Writers take a cross-process file lock next to the collection
// database, so two vaultindex processes cannot interleave
// delete-then-insert sequences for the same collection. Reads do not
// lock.
type Collection struct {
	engine   *store.Engine
	name     string
	provider embed.Provider
	chunker  chunk.Chunker

	lockMu sync.Mutex
	lock   *flock.Flock
	locked bool
}

// NewCollection wires an index collection over the given store
// engine, embedding provider, and chunker.
func NewCollection(engine *store.Engine, name string, provider embed.Provider, chunker chunk.Chunker) *Collection {
	return &Collection{
		engine:   engine,
		name:     name,
		provider: provider,
		chunker:  chunker,
	}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Provider returns the active embedding provider.
func (c *Collection) Provider() embed.Provider { return c.provider }

// openExisting returns the store collection if it exists. It never
// creates one: the collection is created by the first successful
// write, with the dimension the provider actually produced, so a
// provider that learns its dimension lazily never stamps the
// collection with its fallback value. A provider whose known
// dimension disagrees with an existing collection fails here.
func (c *Collection) openExisting(ctx context.Context) (*store.Collection, bool, error) {
	coll, ok, err := c.engine.GetCollection(ctx, c.name)
	if err != nil || !ok {
		return nil, false, err
	}
	if dims, known := c.provider.Dimensions(); known && dims != coll.Dimensions() {
		return nil, false, store.DimensionMismatch(c.name, coll.Dimensions(), dims)
	}
	return coll, true, nil
}

// acquireWriteLock takes the cross-process write lock. It blocks
// until the lock is available. In-memory engines have no lock file
// and skip locking.
func (c *Collection) acquireWriteLock() error {
	if c.engine.Path() == "" {
		return nil
	}

	c.lockMu.Lock()
	defer c.lockMu.Unlock()

	if c.locked {
		return nil
	}
	if c.lock == nil {
		c.lock = flock.New(path.Join(c.engine.Path(), c.name+".lock"))
	}
	if err := c.lock.Lock(); err != nil {
		return errors.StoreError("failed to acquire index write lock", err)
	}
	c.locked = true
	return nil
}

// Close releases the write lock if held. The store engine is closed
// separately by its owner.
func (c *Collection) Close() error {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()

	if !c.locked {
		return nil
	}
	c.locked = false
	if err := c.lock.Unlock(); err != nil {
		return errors.StoreError("failed to release index write lock", err)
	}
	return nil
}

// UpsertNote replaces every indexed chunk of the note with chunks of
// the given content, returning the number of chunks written. Content
// that produces no chunks removes the note from the index and
// returns 0.
//
// Existing chunks are deleted before the new content is embedded, so
// an embedding failure leaves the note absent from the index until
// the next successful run. The failure is returned as a per-note
// error for the caller to record.
func (c *Collection) UpsertNote(ctx context.Context, notePath, content string, mtime int64) (int, error) {
	if err := c.acquireWriteLock(); err != nil {
		return 0, err
	}
	coll, exists, err := c.openExisting(ctx)
	if err != nil {
		return 0, err
	}

	if exists {
		if _, err := c.deleteChunks(ctx, coll, notePath); err != nil {
			return 0, err
		}
	}

	chunks := c.chunker.Chunk(content)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := c.provider.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, errors.New(errors.ErrCodeEmbedAPI,
			fmt.Sprintf("provider returned %d vectors for %d chunks", len(vectors), len(chunks)), nil)
	}

	if !exists {
		// First write creates the collection. By now the provider has
		// produced real vectors, so a lazily discovered dimension is
		// recorded, never its fallback.
		dims, known := c.provider.Dimensions()
		if !known {
			dims = len(vectors[0])
		}
		coll, err = c.engine.GetOrCreateCollection(ctx, c.name, dims)
		if err != nil {
			return 0, err
		}
	}

	records := make([]store.Record, len(chunks))
	for i, text := range chunks {
		records[i] = store.Record{
			ID:        chunkID(notePath, i),
			Document:  text,
			Embedding: vectors[i],
			Metadata: store.Metadata{
				Path:        notePath,
				Folder:      folderOf(notePath),
				Title:       titleOf(notePath),
				Mtime:       mtime,
				ChunkIndex:  i,
				TotalChunks: len(chunks),
			},
		}
	}
	if err := coll.Upsert(ctx, records); err != nil {
		return 0, err
	}

	slog.Debug("note indexed",
		slog.String("path", notePath),
		slog.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// DeleteNote removes every chunk of the note, returning the number
// removed. Deleting a note that is not indexed returns 0.
func (c *Collection) DeleteNote(ctx context.Context, notePath string) (int, error) {
	if err := c.acquireWriteLock(); err != nil {
		return 0, err
	}
	coll, exists, err := c.openExisting(ctx)
	if err != nil || !exists {
		return 0, err
	}
	return c.deleteChunks(ctx, coll, notePath)
}

func (c *Collection) deleteChunks(ctx context.Context, coll *store.Collection, notePath string) (int, error) {
	existing, err := coll.Get(ctx, store.Filter{Path: &notePath}, false)
	if err != nil {
		return 0, err
	}
	if len(existing) == 0 {
		return 0, nil
	}
	ids := make([]string, len(existing))
	for i, r := range existing {
		ids[i] = r.ID
	}
	if err := coll.Delete(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Clear destroys the collection. Clearing a collection that does not
// exist is a no-op.
func (c *Collection) Clear(ctx context.Context) error {
	if err := c.acquireWriteLock(); err != nil {
		return err
	}
	return c.engine.DeleteCollection(c.name)
}

// Status is an on-demand snapshot of the index.
type Status struct {
	Collection      string `json:"collection"`
	TotalDocuments  int    `json:"total_documents"`
	TotalNotes      int    `json:"total_notes"`
	Provider        string `json:"provider"`
	Dimensions      int    `json:"dimensions"`
	DimensionsKnown bool   `json:"dimensions_known"`
	LastMtime       int64  `json:"last_mtime"`
	StoragePath     string `json:"storage_path"`
}

// Status reports the current state of the index. An empty or missing
// collection reports zero counts, not an error.
func (c *Collection) Status(ctx context.Context) (Status, error) {
	var stats store.Stats
	coll, exists, err := c.openExisting(ctx)
	if err != nil {
		return Status{}, err
	}
	if exists {
		if stats, err = coll.Stats(ctx); err != nil {
			return Status{}, err
		}
	}
	dims, known := c.provider.Dimensions()
	return Status{
		Collection:      c.name,
		TotalDocuments:  stats.Documents,
		TotalNotes:      stats.Notes,
		Provider:        c.provider.Name(),
		Dimensions:      dims,
		DimensionsKnown: known,
		LastMtime:       stats.LastMtime,
		StoragePath:     c.engine.Path(),
	}, nil
}

// chunkID builds the stored chunk identifier.
func chunkID(notePath string, index int) string {
	return fmt.Sprintf("%s::%d", notePath, index)
}

// folderOf returns the parent folder of a vault path, "" for the
// vault root.
func folderOf(notePath string) string {
	dir := path.Dir(notePath)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// titleOf returns the note title, the file name without extension.
func titleOf(notePath string) string {
	base := path.Base(notePath)
	return strings.TrimSuffix(base, path.Ext(base))
}
