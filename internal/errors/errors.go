package errors

import (
	stderrors "errors"
	"fmt"
)

// VaultError is the structured error type for vaultindex.
// It provides rich context for error handling, logging, and user presentation.
type VaultError struct {
	// Code is the unique error code (e.g., "ERR_201_VAULT_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Vault, Embedding, Query, Store).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *VaultError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with VaultError.
func (e *VaultError) Is(target error) bool {
	if t, ok := target.(*VaultError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *VaultError) WithDetail(key, value string) *VaultError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *VaultError) WithSuggestion(suggestion string) *VaultError {
	e.Suggestion = suggestion
	return e
}

// New creates a new VaultError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *VaultError {
	return &VaultError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a VaultError from an existing error.
// The error's message becomes the VaultError message.
func Wrap(code string, err error) *VaultError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error. Fatal for the whole run.
func ConfigError(message string, cause error) *VaultError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StoreError creates a vector store error.
func StoreError(message string, cause error) *VaultError {
	return New(ErrCodeStoreFailed, message, cause)
}

// IndexEmpty creates the query-time condition for an empty collection.
func IndexEmpty(collection string) *VaultError {
	return New(ErrCodeIndexEmpty,
		fmt.Sprintf("vector index %q is empty", collection), nil).
		WithSuggestion("run 'vaultindex full' to build the index")
}

// NoteNotIndexed creates the query-time condition for an unknown source note.
func NoteNotIndexed(path string) *VaultError {
	return New(ErrCodeNoteNotIndexed,
		fmt.Sprintf("note not found in index: %s", path), nil).
		WithSuggestion("run 'vaultindex update' to pick up new notes")
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a VaultError with Retryable flag set.
func IsRetryable(err error) bool {
	var ve *VaultError
	if stderrors.As(err, &ve) {
		return ve.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var ve *VaultError
	if stderrors.As(err, &ve) {
		return ve.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a VaultError anywhere in the chain.
// Returns empty string if none is found.
func GetCode(err error) string {
	var ve *VaultError
	if stderrors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// GetCategory extracts the category from a VaultError anywhere in the chain.
// Returns empty string if none is found.
func GetCategory(err error) Category {
	var ve *VaultError
	if stderrors.As(err, &ve) {
		return ve.Category
	}
	return ""
}

// HasCode reports whether the error chain contains a VaultError with the code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}
