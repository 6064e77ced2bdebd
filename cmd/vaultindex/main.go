// Package main provides the entry point for the vaultindex CLI.
package main

import (
	"fmt"
	"os"

	"github.com/vaultindex/vaultindex/cmd/vaultindex/cmd"
	"github.com/vaultindex/vaultindex/internal/errors"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprint(os.Stderr, errors.FormatForCLI(err))
		os.Exit(errors.ExitCode(err))
	}
}
