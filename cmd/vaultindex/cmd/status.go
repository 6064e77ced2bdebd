package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index status",
		Long: `Display the current state of the index: chunk and note counts,
the active embedding provider and its dimension, the newest indexed
note mtime, and the storage location. An empty index reports zero
counts and exits 0.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	status, err := app.coll.Status(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintf(out, "Collection:   %s\n", status.Collection)
	fmt.Fprintf(out, "Documents:    %d chunks across %d notes\n",
		status.TotalDocuments, status.TotalNotes)

	dims := fmt.Sprintf("%d dims", status.Dimensions)
	if !status.DimensionsKnown {
		dims += " (assumed)"
	}
	fmt.Fprintf(out, "Provider:     %s (%s)\n", status.Provider, dims)

	if status.LastMtime > 0 {
		fmt.Fprintf(out, "Last updated: %s\n",
			time.Unix(status.LastMtime, 0).UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(out, "Last updated: never (index is empty)")
	}
	fmt.Fprintf(out, "Storage:      %s\n", status.StoragePath)
	return nil
}
