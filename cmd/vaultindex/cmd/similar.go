package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vaultindex/vaultindex/internal/index"
)

func newSimilarCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "similar <path>",
		Short: "Find notes similar to a given note",
		Long: `Rank indexed notes by similarity to the given note, using the
embedding of its first chunk. The note itself is excluded and each
note appears at most once.

Example:
  vaultindex similar "Projects/kubernetes-migration.md" --limit 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilar(cmd, args[0], limit, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", index.DefaultSimilarLimit, "Maximum number of results")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSimilar(cmd *cobra.Command, path string, limit int, format string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	engine := index.NewQueryEngine(app.coll)
	results, err := engine.FindSimilar(cmd.Context(), path, limit)
	if err != nil {
		return err
	}

	return renderResults(cmd.OutOrStdout(), results, format)
}
