package index

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/vaultindex/vaultindex/internal/config"
	"github.com/vaultindex/vaultindex/internal/embed"
	"github.com/vaultindex/vaultindex/internal/store"
	"github.com/vaultindex/vaultindex/internal/vault"
)

// Progress reports one completed note during a sync run. Events
// arrive in completion order, not submission order.
type Progress struct {
	// Path is the note that finished.
	Path string

	// Chunks is the number of chunks written (0 for deletes and
	// failures).
	Chunks int

	// Deleted marks a delete event.
	Deleted bool

	// Err is the per-note error, nil on success.
	Err error

	// Done and Total track run completion.
	Done  int
	Total int
}

// ProgressFunc receives progress events. It may be called from
// multiple workers, one event at a time.
type ProgressFunc func(Progress)

// NoteError records a per-note failure.
type NoteError struct {
	Path string
	Err  error
}

// Result summarizes a sync run.
type Result struct {
	// Indexed is the number of notes successfully indexed.
	Indexed int

	// Deleted is the number of notes removed.
	Deleted int

	// Chunks is the total number of chunks written.
	Chunks int

	// Errors holds per-note failures. A failed note never aborts the
	// run.
	Errors []NoteError
}

// AllFailed reports whether every attempted note failed. Callers use
// it to tell a broken provider apart from a few bad notes.
func (r Result) AllFailed() bool {
	return r.Indexed == 0 && r.Deleted == 0 && len(r.Errors) > 0
}

// ChangeSet partitions vault paths by what changed since the last
// sync.
type ChangeSet struct {
	New      []string
	Modified []string
	Deleted  []string
}

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c.New) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// noteWriter is the collection surface a sync run drives.
// *Collection implements it.
type noteWriter interface {
	UpsertNote(ctx context.Context, notePath, content string, mtime int64) (int, error)
	DeleteNote(ctx context.Context, notePath string) (int, error)
	openExisting(ctx context.Context) (*store.Collection, bool, error)
	Provider() embed.Provider
}

// Synchronizer drives full and incremental indexing runs over a
// collection.
//
// Remote providers spend their time waiting on HTTP, so notes are
// dispatched across a worker pool started at construction. The
// in-process provider is CPU-bound; it gets no pool, and notes run
// on the calling goroutine. Close stops the pool.
type Synchronizer struct {
	coll     noteWriter
	width    int
	jobs     chan func()
	progress ProgressFunc

	closeOnce sync.Once
}

// NewSynchronizer starts a synchronizer with the given worker width.
// The width is clamped to the configured range; an in-process
// provider runs sequentially with no pool. progress may be nil.
func NewSynchronizer(coll *Collection, width int, progress ProgressFunc) *Synchronizer {
	if width < config.MinBatchWidth {
		width = config.MinBatchWidth
	}
	if width > config.MaxBatchWidth {
		width = config.MaxBatchWidth
	}

	s := &Synchronizer{
		coll:     coll,
		width:    width,
		progress: progress,
	}
	if !coll.Provider().Remote() {
		s.width = 1
		return s
	}

	s.jobs = make(chan func())
	for i := 0; i < s.width; i++ {
		go s.worker()
	}
	return s
}

func (s *Synchronizer) worker() {
	for job := range s.jobs {
		job()
	}
}

// Width returns the effective worker pool width.
func (s *Synchronizer) Width() int { return s.width }

// Close stops the worker pool. No sync calls may follow.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		if s.jobs != nil {
			close(s.jobs)
		}
	})
}

// IndexAll indexes every given note. Per-note failures are collected
// in the result; the run always continues.
func (s *Synchronizer) IndexAll(ctx context.Context, notes []vault.Note) Result {
	var res Result
	run := newRun(s.progress, len(notes))
	s.indexNotes(ctx, notes, run, &res)
	slog.Info("index run complete",
		slog.Int("indexed", res.Indexed),
		slog.Int("chunks", res.Chunks),
		slog.Int("errors", len(res.Errors)))
	return res
}

// DetectChanges compares the vault's current notes against the index
// and reports which paths are new, modified, or deleted. A note is
// modified only when its mtime is strictly greater than the indexed
// one; equal mtimes mean unchanged.
func (s *Synchronizer) DetectChanges(ctx context.Context, current []vault.NoteMeta) (ChangeSet, error) {
	coll, exists, err := s.coll.openExisting(ctx)
	if err != nil {
		return ChangeSet{}, err
	}

	// One representative chunk per path carries the note's mtime. A
	// missing collection means everything is new.
	indexed := make(map[string]int64)
	if exists {
		first := 0
		records, err := coll.Get(ctx, store.Filter{ChunkIndex: &first}, false)
		if err != nil {
			return ChangeSet{}, err
		}
		for _, r := range records {
			indexed[r.Metadata.Path] = r.Metadata.Mtime
		}
	}

	var changes ChangeSet
	seen := make(map[string]bool, len(current))
	for _, note := range current {
		seen[note.Path] = true
		mtime, ok := indexed[note.Path]
		switch {
		case !ok:
			changes.New = append(changes.New, note.Path)
		case note.Mtime > mtime:
			changes.Modified = append(changes.Modified, note.Path)
		}
	}
	for path := range indexed {
		if !seen[path] {
			changes.Deleted = append(changes.Deleted, path)
		}
	}

	sort.Strings(changes.New)
	sort.Strings(changes.Modified)
	sort.Strings(changes.Deleted)
	return changes, nil
}

// ApplyIncremental deletes the given paths, then indexes the given
// notes. Deletes run first so a renamed note never collides with its
// old identity.
func (s *Synchronizer) ApplyIncremental(ctx context.Context, adds []vault.Note, deletes []string) Result {
	var res Result
	run := newRun(s.progress, len(deletes)+len(adds))

	for _, path := range deletes {
		_, err := s.coll.DeleteNote(ctx, path)
		if err != nil {
			res.Errors = append(res.Errors, NoteError{Path: path, Err: err})
		} else {
			res.Deleted++
		}
		run.emit(Progress{Path: path, Deleted: true, Err: err})
	}

	s.indexNotes(ctx, adds, run, &res)
	slog.Info("incremental sync complete",
		slog.Int("indexed", res.Indexed),
		slog.Int("deleted", res.Deleted),
		slog.Int("chunks", res.Chunks),
		slog.Int("errors", len(res.Errors)))
	return res
}

// indexNotes dispatches notes to the pool and waits for completion.
// Without a pool the notes run inline on the calling goroutine.
func (s *Synchronizer) indexNotes(ctx context.Context, notes []vault.Note, run *runState, res *Result) {
	if s.jobs == nil {
		for _, note := range notes {
			n, err := s.coll.UpsertNote(ctx, note.Path, note.Content, note.Mtime)
			run.record(res, note.Path, n, err)
		}
		return
	}

	var wg sync.WaitGroup
	for _, note := range notes {
		note := note
		wg.Add(1)
		s.jobs <- func() {
			defer wg.Done()
			n, err := s.coll.UpsertNote(ctx, note.Path, note.Content, note.Mtime)
			run.record(res, note.Path, n, err)
		}
	}
	wg.Wait()
}

// runState serializes result updates and progress emission across
// workers.
type runState struct {
	mu       sync.Mutex
	progress ProgressFunc
	done     int
	total    int
}

func newRun(progress ProgressFunc, total int) *runState {
	return &runState{progress: progress, total: total}
}

func (r *runState) record(res *Result, path string, chunks int, err error) {
	r.mu.Lock()
	if err != nil {
		res.Errors = append(res.Errors, NoteError{Path: path, Err: err})
		slog.Warn("failed to index note",
			slog.String("path", path),
			slog.String("error", err.Error()))
	} else {
		res.Indexed++
		res.Chunks += chunks
	}
	r.done++
	p := Progress{Path: path, Chunks: chunks, Err: err, Done: r.done, Total: r.total}
	if r.progress != nil {
		r.progress(p)
	}
	r.mu.Unlock()
}

func (r *runState) emit(p Progress) {
	r.mu.Lock()
	r.done++
	p.Done = r.done
	p.Total = r.total
	if r.progress != nil {
		r.progress(p)
	}
	r.mu.Unlock()
}
