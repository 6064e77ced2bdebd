// Package cmd provides the CLI commands for vaultindex.
package cmd

import (
	"context"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vaultindex/vaultindex/internal/chunk"
	"github.com/vaultindex/vaultindex/internal/config"
	"github.com/vaultindex/vaultindex/internal/embed"
	"github.com/vaultindex/vaultindex/internal/index"
	"github.com/vaultindex/vaultindex/internal/logging"
	"github.com/vaultindex/vaultindex/internal/store"
	"github.com/vaultindex/vaultindex/internal/ui"
	"github.com/vaultindex/vaultindex/internal/vault"
	"github.com/vaultindex/vaultindex/pkg/version"
)

// fetchConcurrency bounds concurrent note downloads from the vault.
const fetchConcurrency = 8

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the vaultindex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vaultindex",
		Short: "Semantic search index for an Obsidian vault",
		Long: `vaultindex builds and maintains a semantic embedding index over the
notes of an Obsidian vault, read through the Local REST API plugin.

Index the vault with 'vaultindex full', keep it current with
'vaultindex update', and query it with 'vaultindex search'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("vaultindex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false,
		"Enable debug logging to ~/.vaultindex/logs/")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = teardownLogging

	cmd.AddCommand(newFullCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSimilarCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	if debugMode {
		cleanup, err := logging.SetupDefault()
		if err == nil {
			loggingCleanup = cleanup
		}
		return nil
	}
	logging.SetupQuiet("warn")
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// app holds the wired components every command works with.
type app struct {
	cfg      *config.Config
	provider embed.Provider
	engine   *store.Engine
	chunker  chunk.Chunker
	coll     *index.Collection
}

// newApp loads configuration and wires the provider, store engine,
// and index collection.
func newApp() (*app, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	inner, err := embed.NewProvider(cfg.Index)
	if err != nil {
		return nil, err
	}
	// Identical chunks recur across notes within a run; the cache
	// skips their embedding calls.
	provider := embed.NewCachedProvider(inner, embed.DefaultCacheSize)
	engine, err := store.Open(cfg.Index.StoragePath)
	if err != nil {
		provider.Close()
		return nil, err
	}
	chunker := chunk.New(cfg.Index.ChunkSize)
	coll := index.NewCollection(engine, cfg.Index.CollectionName, provider, chunker)
	return &app{cfg: cfg, provider: provider, engine: engine, chunker: chunker, coll: coll}, nil
}

func (a *app) Close() {
	a.coll.Close()
	a.engine.Close()
	a.provider.Close()
}

// vaultClient builds the vault HTTP client, requiring the API key.
func (a *app) vaultClient() (*vault.Client, error) {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return vault.NewClient(a.cfg.Vault), nil
}

// fetchNotes downloads the given paths concurrently. A failed read is
// a warning and the note is skipped; the run continues with the rest.
// Notes are returned sorted by path so runs submit work in a stable
// order.
func fetchNotes(ctx context.Context, repo vault.Repository, paths []string, progress *ui.Progress) ([]vault.Note, []index.NoteError) {
	var mu sync.Mutex
	notes := make([]vault.Note, 0, len(paths))
	var failures []index.NoteError

	g := new(errgroup.Group)
	g.SetLimit(fetchConcurrency)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			note, err := repo.ReadNote(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, index.NoteError{Path: path, Err: err})
				progress.Warn(path, err)
				return nil
			}
			notes = append(notes, *note)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(notes, func(i, j int) bool { return notes[i].Path < notes[j].Path })
	return notes, failures
}

// newProgressCallback adapts sync progress events to the renderer.
func newProgressCallback(progress *ui.Progress) index.ProgressFunc {
	return func(p index.Progress) {
		if p.Err != nil {
			progress.Warn(p.Path, p.Err)
			return
		}
		progress.Update(p.Done, p.Total, p.Path)
	}
}
