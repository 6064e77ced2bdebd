// Package store persists embedded note chunks and serves approximate
// nearest neighbor queries over them.
//
// Each collection is a SQLite database (modernc.org/sqlite, pure Go)
// holding chunk text, metadata, and embeddings as the source of truth,
// plus an in-memory HNSW graph (coder/hnsw) rebuilt from the stored
// embeddings when the collection is opened.
package store

import (
	"encoding/binary"
	"math"
)

// Metadata describes where a chunk came from.
type Metadata struct {
	// Path is the note path relative to the vault root.
	Path string

	// Folder is the parent folder ("" for the vault root).
	Folder string

	// Title is the note title (file name without extension).
	Title string

	// Mtime is the note's last modification time (Unix seconds).
	Mtime int64

	// ChunkIndex is the zero-based position of this chunk in the note.
	ChunkIndex int

	// TotalChunks is the number of chunks the note produced.
	TotalChunks int
}

// Record is one stored chunk.
type Record struct {
	// ID uniquely identifies the chunk ("path::index").
	ID string

	// Document is the chunk text.
	Document string

	// Embedding is the chunk's vector. It may be nil on reads that
	// did not request embeddings.
	Embedding []float32

	Metadata Metadata
}

// Filter restricts reads and queries. Nil fields match everything.
type Filter struct {
	Path       *string
	Folder     *string
	ChunkIndex *int
}

// Matches reports whether metadata passes the filter.
func (f Filter) Matches(m Metadata) bool {
	if f.Path != nil && m.Path != *f.Path {
		return false
	}
	if f.Folder != nil && m.Folder != *f.Folder {
		return false
	}
	if f.ChunkIndex != nil && m.ChunkIndex != *f.ChunkIndex {
		return false
	}
	return true
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return f.Path == nil && f.Folder == nil && f.ChunkIndex == nil
}

// Match is one query result: the record and its cosine distance from
// the query vector (0 identical, 2 opposite).
type Match struct {
	Record   Record
	Distance float32
}

// Stats summarizes a collection for status reporting.
type Stats struct {
	// Documents is the number of stored chunks.
	Documents int

	// Notes is the number of distinct note paths.
	Notes int

	// LastMtime is the newest note mtime in the collection, zero when
	// empty.
	LastMtime int64
}

// encodeVector packs a float32 vector into a little-endian blob.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a blob written by encodeVector.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
