// Package logging provides opt-in file-based logging with rotation for
// vaultindex. When the --debug flag is set, structured JSON logs are written
// to ~/.vaultindex/logs/ alongside stderr output.
//
// By default (without --debug), logging is info-level and goes to stderr only.
package logging
