package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var ve *VaultError
	if !stderrors.As(err, &ve) {
		ve = Wrap(ErrCodeStoreFailed, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ve.Message))
	if ve.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ve.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ve.Code))

	return sb.String()
}

// ExitCode maps an error to the CLI process exit code.
// Store failures exit 1, configuration errors exit 2, vault errors exit 3.
// Query conditions are advisory and exit 0; callers print them instead.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	// Dimension mismatch sits in the query code range but is a fatal
	// index condition; runs that fail on it must not exit 0.
	if GetCode(err) == ErrCodeDimensionMismatch {
		return 1
	}
	switch GetCategory(err) {
	case CategoryConfig:
		return 2
	case CategoryVault:
		return 3
	case CategoryQuery:
		return 0
	default:
		return 1
	}
}
