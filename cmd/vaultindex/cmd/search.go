package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaultindex/vaultindex/internal/index"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	folder string
	format string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed vault",
		Long: `Search indexed notes by meaning rather than keywords.

Examples:
  vaultindex search "weekly planning routine"
  vaultindex search "kubernetes debugging" --limit 5
  vaultindex search "meeting notes" --folder Work --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", index.DefaultSearchLimit, "Maximum number of results")
	cmd.Flags().StringVar(&opts.folder, "folder", "", "Restrict results to one folder")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	engine := index.NewQueryEngine(app.coll)
	results, err := engine.Search(cmd.Context(), query, opts.limit, opts.folder)
	if err != nil {
		return err
	}

	return renderResults(cmd.OutOrStdout(), results, opts.format)
}

func renderResults(out io.Writer, results []index.SearchResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No matching notes.")
		return nil
	}

	for i, r := range results {
		fmt.Fprintf(out, "%d. %s (%.4f)\n", i+1, r.Path, r.Score)
		if r.TotalChunks > 1 {
			fmt.Fprintf(out, "   chunk %d/%d\n", r.ChunkIndex+1, r.TotalChunks)
		}
		preview := strings.ReplaceAll(r.Preview, "\n", " ")
		fmt.Fprintf(out, "   %s\n", preview)
	}
	return nil
}
