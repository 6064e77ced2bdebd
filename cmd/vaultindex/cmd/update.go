package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultindex/vaultindex/internal/index"
	"github.com/vaultindex/vaultindex/internal/ui"
	"github.com/vaultindex/vaultindex/internal/vault"
)

func newUpdateCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Sync the index with vault changes",
		Long: `Compare the vault against the index and apply the difference:
new notes are indexed, modified notes re-indexed, and notes deleted
from the vault removed from the index. Unchanged notes are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print each note as it is processed")

	return cmd
}

func runUpdate(ctx context.Context, cmd *cobra.Command, verbose bool) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	client, err := app.vaultClient()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	paths, err := client.ListPaths(ctx)
	if err != nil {
		return err
	}

	progress := ui.NewProgress(out, verbose)
	notes, fetchFailures := fetchNotes(ctx, client, paths, progress)

	syncer := index.NewSynchronizer(app.coll, app.cfg.Index.BatchWidth,
		newProgressCallback(progress))
	defer syncer.Close()

	metas := make([]vault.NoteMeta, len(notes))
	byPath := make(map[string]vault.Note, len(notes))
	for i, note := range notes {
		metas[i] = note.Meta()
		byPath[note.Path] = note
	}

	changes, err := syncer.DetectChanges(ctx, metas)
	if err != nil {
		return err
	}
	if changes.Empty() {
		progress.Finish()
		fmt.Fprintln(out, "Index is already up to date.")
		return nil
	}

	adds := make([]vault.Note, 0, len(changes.New)+len(changes.Modified))
	for _, path := range changes.New {
		adds = append(adds, byPath[path])
	}
	for _, path := range changes.Modified {
		adds = append(adds, byPath[path])
	}

	fmt.Fprintf(out, "Applying changes: %d new, %d modified, %d deleted\n",
		len(changes.New), len(changes.Modified), len(changes.Deleted))

	res := syncer.ApplyIncremental(ctx, adds, changes.Deleted)
	progress.Finish()

	res.Errors = append(res.Errors, fetchFailures...)
	printRunSummary(out, res)

	if res.AllFailed() {
		return res.Errors[0].Err
	}
	return nil
}
