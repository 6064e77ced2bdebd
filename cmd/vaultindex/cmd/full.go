package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vaultindex/vaultindex/internal/index"
	"github.com/vaultindex/vaultindex/internal/ui"
)

func newFullCmd() *cobra.Command {
	var force bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "full",
		Short: "Build the index from every note in the vault",
		Long: `Read every markdown note from the vault and index it.

Notes already in the index are re-indexed in place. With --force the
collection is cleared first, which is required after switching
embedding providers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFull(cmd.Context(), cmd, force, verbose)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Clear the collection before indexing")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print each note as it is indexed")

	return cmd
}

func runFull(ctx context.Context, cmd *cobra.Command, force, verbose bool) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	client, err := app.vaultClient()
	if err != nil {
		return err
	}

	if force {
		if err := app.coll.Clear(ctx); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	paths, err := client.ListPaths(ctx)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "Vault has no markdown notes; nothing to index.")
		return nil
	}
	fmt.Fprintf(out, "Indexing %d notes from %s\n", len(paths), app.cfg.Vault.BaseURL())

	progress := ui.NewProgress(out, verbose)
	notes, fetchFailures := fetchNotes(ctx, client, paths, progress)

	syncer := index.NewSynchronizer(app.coll, app.cfg.Index.BatchWidth,
		newProgressCallback(progress))
	defer syncer.Close()

	res := syncer.IndexAll(ctx, notes)
	progress.Finish()

	res.Errors = append(res.Errors, fetchFailures...)
	printRunSummary(out, res)

	if res.AllFailed() {
		return res.Errors[0].Err
	}
	return nil
}

func printRunSummary(out io.Writer, res index.Result) {
	fmt.Fprintf(out, "Indexed %d notes (%d chunks)", res.Indexed, res.Chunks)
	if res.Deleted > 0 {
		fmt.Fprintf(out, ", removed %d", res.Deleted)
	}
	if len(res.Errors) > 0 {
		fmt.Fprintf(out, ", %d failed", len(res.Errors))
	}
	fmt.Fprintln(out)
}
