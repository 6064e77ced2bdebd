package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/vaultindex/vaultindex/internal/errors"
)

// collectionNamePattern keeps collection names safe to use as file
// names.
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Engine manages the collections under a storage directory. An empty
// root creates in-memory collections, used by tests.
type Engine struct {
	root string

	mu   sync.Mutex
	open map[string]*Collection
}

// Open creates an engine rooted at dir. The directory is created if
// it does not exist. An empty dir selects in-memory storage.
func Open(dir string) (*Engine, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.StoreError(
				fmt.Sprintf("failed to create storage directory %s", dir), err)
		}
	}
	return &Engine{root: dir, open: make(map[string]*Collection)}, nil
}

// Path returns the storage directory ("" for in-memory engines).
func (e *Engine) Path() string { return e.root }

// dbPath returns the SQLite path for a collection, or "" in-memory.
func (e *Engine) dbPath(name string) string {
	if e.root == "" {
		return ""
	}
	return filepath.Join(e.root, name+".db")
}

// GetOrCreateCollection opens the named collection, creating it if
// needed. dims is the embedding dimension every stored vector must
// have; reopening an existing collection with a different dimension
// fails with a dimension mismatch, and the caller must clear first.
func (e *Engine) GetOrCreateCollection(ctx context.Context, name string, dims int) (*Collection, error) {
	if !collectionNamePattern.MatchString(name) {
		return nil, errors.StoreError(
			fmt.Sprintf("invalid collection name %q", name), nil)
	}
	if dims <= 0 {
		return nil, errors.StoreError(
			fmt.Sprintf("invalid embedding dimension %d", dims), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.open[name]; ok {
		if c.dims != dims {
			return nil, DimensionMismatch(name, c.dims, dims)
		}
		return c, nil
	}

	c, err := openCollection(ctx, name, e.dbPath(name), dims)
	if err != nil {
		return nil, err
	}
	e.open[name] = c
	return c, nil
}

// GetCollection opens the named collection if it exists, using the
// dimension recorded in its metadata. It never creates one; callers
// that do not know the embedding dimension yet use this to avoid
// stamping a collection with a guessed value.
func (e *Engine) GetCollection(ctx context.Context, name string) (*Collection, bool, error) {
	if !collectionNamePattern.MatchString(name) {
		return nil, false, errors.StoreError(
			fmt.Sprintf("invalid collection name %q", name), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.open[name]; ok {
		return c, true, nil
	}

	path := e.dbPath(name)
	if path == "" {
		// In-memory collections exist only while cached.
		return nil, false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.StoreError(
			fmt.Sprintf("failed to stat collection %q", name), err)
	}

	c, err := openCollection(ctx, name, path, 0)
	if err != nil {
		return nil, false, err
	}
	e.open[name] = c
	return c, true, nil
}

// DeleteCollection removes the named collection and its files.
// Deleting a collection that does not exist is not an error.
func (e *Engine) DeleteCollection(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return errors.StoreError(
			fmt.Sprintf("invalid collection name %q", name), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.open[name]; ok {
		if err := c.Close(); err != nil {
			return err
		}
		delete(e.open, name)
	}

	path := e.dbPath(name)
	if path == "" {
		return nil
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.StoreError(
				fmt.Sprintf("failed to remove %s", p), err)
		}
	}
	return nil
}

// Close closes all open collections.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for name, c := range e.open {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.open, name)
	}
	return firstErr
}

// DimensionMismatch builds the error for a collection opened with the
// wrong embedding dimension.
func DimensionMismatch(name string, have, want int) error {
	return errors.New(errors.ErrCodeDimensionMismatch,
		fmt.Sprintf("collection %q stores %d-dimensional vectors, provider produces %d",
			name, have, want), nil).
		WithSuggestion("run 'vaultindex clear' and reindex with the new provider")
}
