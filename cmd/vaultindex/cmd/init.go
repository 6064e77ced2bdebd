package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultindex/vaultindex/configs"
	"github.com/vaultindex/vaultindex/internal/errors"
)

const configFileName = ".vaultindex.yaml"

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated config file to the current directory",
		Long: `Create ` + configFileName + ` in the current directory with every
setting documented. Existing files are left alone unless --force is
given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	if _, err := os.Stat(configFileName); err == nil && !force {
		return errors.ConfigError(
			fmt.Sprintf("%s already exists; use --force to overwrite", configFileName), nil)
	}

	if err := os.WriteFile(configFileName, []byte(configs.ConfigTemplate), 0o644); err != nil {
		return errors.ConfigError(
			fmt.Sprintf("failed to write %s", configFileName), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configFileName)
	return nil
}
