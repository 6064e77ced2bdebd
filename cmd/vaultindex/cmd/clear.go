package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Destroy the index",
		Long: `Delete the entire collection from storage. The vault itself is
never touched. Prompts for confirmation unless --confirm is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd, confirm)
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Skip the confirmation prompt")

	return cmd
}

func runClear(cmd *cobra.Command, confirm bool) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	if !confirm {
		fmt.Fprintf(out, "This will delete collection %q from %s.\nType 'yes' to continue: ",
			app.cfg.Index.CollectionName, app.cfg.Index.StoragePath)

		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := app.coll.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(out, "Index cleared.")
	return nil
}
