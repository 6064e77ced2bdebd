// Package errors provides structured error handling for vaultindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Vault (note repository) errors
//   - 3XX: Embedding provider errors
//   - 4XX: Query-time conditions
//   - 5XX: Vector store errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryVault indicates note repository errors.
	CategoryVault Category = "VAULT"
	// CategoryEmbedding indicates embedding provider errors.
	CategoryEmbedding Category = "EMBEDDING"
	// CategoryQuery indicates query-time conditions (empty index, unknown note).
	CategoryQuery Category = "QUERY"
	// CategoryStore indicates vector store failures.
	CategoryStore Category = "STORE"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid    = "ERR_101_CONFIG_INVALID"
	ErrCodeConfigMissingKey = "ERR_102_CONFIG_MISSING_KEY"

	// Vault errors (200-299)
	ErrCodeVaultNotFound    = "ERR_201_VAULT_NOT_FOUND"
	ErrCodeVaultAuth        = "ERR_202_VAULT_AUTH"
	ErrCodeVaultConnection  = "ERR_203_VAULT_CONNECTION"
	ErrCodeVaultTimeout     = "ERR_204_VAULT_TIMEOUT"
	ErrCodeVaultRateLimited = "ERR_205_VAULT_RATE_LIMITED"

	// Embedding errors (300-399)
	ErrCodeEmbedConnection = "ERR_301_EMBED_CONNECTION"
	ErrCodeEmbedTimeout    = "ERR_302_EMBED_TIMEOUT"
	ErrCodeEmbedAPI        = "ERR_303_EMBED_API"

	// Query conditions (400-499)
	ErrCodeIndexEmpty        = "ERR_401_INDEX_EMPTY"
	ErrCodeNoteNotIndexed    = "ERR_402_NOTE_NOT_INDEXED"
	ErrCodeDimensionMismatch = "ERR_403_DIMENSION_MISMATCH"

	// Store errors (500-599)
	ErrCodeStoreFailed  = "ERR_501_STORE_FAILED"
	ErrCodeStoreCorrupt = "ERR_502_STORE_CORRUPT"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryStore
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryVault
	case '3':
		return CategoryEmbedding
	case '4':
		return CategoryQuery
	default:
		return CategoryStore
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigInvalid, ErrCodeConfigMissingKey, ErrCodeStoreCorrupt:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeVaultConnection, ErrCodeVaultTimeout, ErrCodeVaultRateLimited,
		ErrCodeEmbedConnection, ErrCodeEmbedTimeout:
		return true
	default:
		return false
	}
}
