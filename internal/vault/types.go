// Package vault provides access to the note repository through the
// Obsidian Local REST API.
package vault

import "context"

// Note is a note fetched from the repository.
type Note struct {
	// Path is the note path relative to the vault root.
	Path string

	// Content is the raw markdown content.
	Content string

	// Mtime is the last modification time as a Unix timestamp in
	// seconds. Zero when the repository did not report one.
	Mtime int64
}

// Meta returns the note's metadata without its content.
func (n *Note) Meta() NoteMeta {
	return NoteMeta{Path: n.Path, Mtime: n.Mtime}
}

// NoteMeta is the metadata used for change detection.
type NoteMeta struct {
	Path  string
	Mtime int64
}

// Repository is the read surface of the note repository.
type Repository interface {
	// ListPaths returns the paths of all markdown notes, sorted.
	ListPaths(ctx context.Context) ([]string, error)

	// ReadNote fetches a single note with content and mtime.
	ReadNote(ctx context.Context, path string) (*Note, error)
}
