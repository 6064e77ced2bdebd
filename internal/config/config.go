// Package config loads and validates the vaultindex configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. Project config file (.vaultindex.yaml in the working directory)
//  3. .env file (loaded into the environment, never overriding existing vars)
//  4. Environment variables (VAULTINDEX_* and OBSIDIAN_*)
//
// The resulting Config value is constructed once at CLI startup and passed
// explicitly to every component that needs it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vaultindex/vaultindex/internal/errors"
)

// Provider names accepted by index.provider.
const (
	ProviderDefault = "default"
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderGoogle  = "google"
	ProviderCohere  = "cohere"
)

// ChunkSize bounds, measured in runes.
const (
	MinChunkSize = 100
	MaxChunkSize = 4000
)

// BatchWidth bounds for concurrent embedding requests.
const (
	MinBatchWidth = 1
	MaxBatchWidth = 10
)

// Config is the complete vaultindex configuration.
type Config struct {
	Vault   VaultConfig   `yaml:"vault"`
	Index   IndexConfig   `yaml:"index"`
	Logging LoggingConfig `yaml:"logging"`
}

// VaultConfig configures the connection to the Obsidian Local REST API.
type VaultConfig struct {
	// Protocol is "http" or "https".
	Protocol string `yaml:"protocol"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	// APIKey is the bearer token from the Local REST API plugin settings.
	APIKey string `yaml:"api_key"`
}

// BaseURL builds the base URL for vault API requests.
func (v VaultConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", v.Protocol, v.Host, v.Port)
}

// IndexConfig configures chunking, embedding, and storage.
type IndexConfig struct {
	// StoragePath is the directory holding the persisted collections.
	// Defaults to ~/.vaultindex.
	StoragePath string `yaml:"storage_path"`

	// CollectionName names the collection used by the CLI commands.
	CollectionName string `yaml:"collection_name"`

	// ChunkSize is the maximum chunk length in runes (100-4000).
	ChunkSize int `yaml:"chunk_size"`

	// BatchWidth bounds concurrent embedding requests for remote
	// providers (1-10). Local providers ignore it.
	BatchWidth int `yaml:"batch_width"`

	// Provider selects the embedding provider.
	Provider string `yaml:"provider"`

	// Ollama settings (used when provider is "ollama").
	OllamaHost  string `yaml:"ollama_host"`
	OllamaModel string `yaml:"ollama_model"`

	// OpenAI settings (used when provider is "openai").
	OpenAIKey   string `yaml:"openai_key"`
	OpenAIModel string `yaml:"openai_model"`

	// Google settings (used when provider is "google").
	GoogleKey   string `yaml:"google_key"`
	GoogleModel string `yaml:"google_model"`

	// Cohere settings (used when provider is "cohere").
	CohereKey   string `yaml:"cohere_key"`
	CohereModel string `yaml:"cohere_model"`
}

// LoggingConfig configures the structured log output.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// NewConfig creates a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			Protocol: "http",
			Host:     "localhost",
			Port:     27123,
			APIKey:   "",
		},
		Index: IndexConfig{
			StoragePath:    defaultStoragePath(),
			CollectionName: "vault_notes",
			ChunkSize:      512,
			BatchWidth:     5,
			Provider:       ProviderDefault,
			OllamaHost:     "http://localhost:11434",
			OllamaModel:    "nomic-embed-text",
			OpenAIModel:    "text-embedding-3-small",
			GoogleModel:    "text-embedding-004",
			CohereModel:    "embed-english-v3.0",
		},
		Logging: LoggingConfig{
			Level:    "info",
			FilePath: "", // empty uses the default under the storage dir
		},
	}
}

// defaultStoragePath returns the default collection storage directory.
func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".vaultindex")
	}
	return filepath.Join(home, ".vaultindex")
}

// Load loads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	// Load .env into the process environment. Existing variables win,
	// matching how the REST API plugin docs tell users to set keys.
	envPath := filepath.Join(dir, ".env")
	if fileExists(envPath) {
		if err := godotenv.Load(envPath); err != nil {
			return nil, errors.ConfigError(
				fmt.Sprintf("failed to load %s", envPath), err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load .vaultindex.yaml or .vaultindex.yml.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".vaultindex.yaml", ".vaultindex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	// No config file is fine, defaults apply
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.ConfigError(
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return errors.ConfigError(
			fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	// Vault
	if other.Vault.Protocol != "" {
		c.Vault.Protocol = other.Vault.Protocol
	}
	if other.Vault.Host != "" {
		c.Vault.Host = other.Vault.Host
	}
	if other.Vault.Port != 0 {
		c.Vault.Port = other.Vault.Port
	}
	if other.Vault.APIKey != "" {
		c.Vault.APIKey = other.Vault.APIKey
	}

	// Index
	if other.Index.StoragePath != "" {
		c.Index.StoragePath = other.Index.StoragePath
	}
	if other.Index.CollectionName != "" {
		c.Index.CollectionName = other.Index.CollectionName
	}
	if other.Index.ChunkSize != 0 {
		c.Index.ChunkSize = other.Index.ChunkSize
	}
	if other.Index.BatchWidth != 0 {
		c.Index.BatchWidth = other.Index.BatchWidth
	}
	if other.Index.Provider != "" {
		c.Index.Provider = other.Index.Provider
	}
	if other.Index.OllamaHost != "" {
		c.Index.OllamaHost = other.Index.OllamaHost
	}
	if other.Index.OllamaModel != "" {
		c.Index.OllamaModel = other.Index.OllamaModel
	}
	if other.Index.OpenAIKey != "" {
		c.Index.OpenAIKey = other.Index.OpenAIKey
	}
	if other.Index.OpenAIModel != "" {
		c.Index.OpenAIModel = other.Index.OpenAIModel
	}
	if other.Index.GoogleKey != "" {
		c.Index.GoogleKey = other.Index.GoogleKey
	}
	if other.Index.GoogleModel != "" {
		c.Index.GoogleModel = other.Index.GoogleModel
	}
	if other.Index.CohereKey != "" {
		c.Index.CohereKey = other.Index.CohereKey
	}
	if other.Index.CohereModel != "" {
		c.Index.CohereModel = other.Index.CohereModel
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
}

// applyEnvOverrides applies VAULTINDEX_* and OBSIDIAN_* overrides.
func (c *Config) applyEnvOverrides() {
	// Vault connection (OBSIDIAN_ prefix matches the Local REST API docs)
	if v := os.Getenv("OBSIDIAN_PROTOCOL"); v != "" {
		c.Vault.Protocol = v
	}
	if v := os.Getenv("OBSIDIAN_HOST"); v != "" {
		c.Vault.Host = v
	}
	if v := os.Getenv("OBSIDIAN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Vault.Port = p
		}
	}
	if v := os.Getenv("OBSIDIAN_API_KEY"); v != "" {
		c.Vault.APIKey = v
	}

	// Index
	if v := os.Getenv("VAULTINDEX_STORAGE_PATH"); v != "" {
		c.Index.StoragePath = v
	}
	if v := os.Getenv("VAULTINDEX_COLLECTION"); v != "" {
		c.Index.CollectionName = v
	}
	if v := os.Getenv("VAULTINDEX_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.ChunkSize = n
		}
	}
	if v := os.Getenv("VAULTINDEX_BATCH_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.BatchWidth = n
		}
	}
	if v := os.Getenv("VAULTINDEX_PROVIDER"); v != "" {
		c.Index.Provider = v
	}
	if v := os.Getenv("VAULTINDEX_OLLAMA_HOST"); v != "" {
		c.Index.OllamaHost = v
	}
	if v := os.Getenv("VAULTINDEX_OLLAMA_MODEL"); v != "" {
		c.Index.OllamaModel = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Index.OpenAIKey = v
	}
	if v := os.Getenv("VAULTINDEX_OPENAI_MODEL"); v != "" {
		c.Index.OpenAIModel = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.Index.GoogleKey = v
	}
	if v := os.Getenv("VAULTINDEX_GOOGLE_MODEL"); v != "" {
		c.Index.GoogleModel = v
	}
	if v := os.Getenv("COHERE_API_KEY"); v != "" {
		c.Index.CohereKey = v
	}
	if v := os.Getenv("VAULTINDEX_COHERE_MODEL"); v != "" {
		c.Index.CohereModel = v
	}

	// Logging
	if v := os.Getenv("VAULTINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VAULTINDEX_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

// Validate validates the configuration and returns a config error if invalid.
func (c *Config) Validate() error {
	if c.Vault.Protocol != "http" && c.Vault.Protocol != "https" {
		return errors.ConfigError(
			fmt.Sprintf("vault.protocol must be 'http' or 'https', got %q", c.Vault.Protocol), nil)
	}
	if c.Vault.Port <= 0 || c.Vault.Port > 65535 {
		return errors.ConfigError(
			fmt.Sprintf("vault.port must be between 1 and 65535, got %d", c.Vault.Port), nil)
	}

	if c.Index.ChunkSize < MinChunkSize || c.Index.ChunkSize > MaxChunkSize {
		return errors.ConfigError(
			fmt.Sprintf("index.chunk_size must be between %d and %d, got %d",
				MinChunkSize, MaxChunkSize, c.Index.ChunkSize), nil)
	}
	if c.Index.BatchWidth < MinBatchWidth || c.Index.BatchWidth > MaxBatchWidth {
		return errors.ConfigError(
			fmt.Sprintf("index.batch_width must be between %d and %d, got %d",
				MinBatchWidth, MaxBatchWidth, c.Index.BatchWidth), nil)
	}
	if c.Index.CollectionName == "" {
		return errors.ConfigError("index.collection_name must not be empty", nil)
	}

	switch strings.ToLower(c.Index.Provider) {
	case ProviderDefault, ProviderOllama, ProviderOpenAI, ProviderGoogle, ProviderCohere:
	default:
		return errors.ConfigError(
			fmt.Sprintf("index.provider must be one of 'default', 'ollama', 'openai', 'google', 'cohere', got %q",
				c.Index.Provider), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return errors.ConfigError(
			fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %q",
				c.Logging.Level), nil)
	}

	return nil
}

// RequireAPIKey returns a config error if the vault API key is missing.
// Called by the CLI before any vault request is made.
func (c *Config) RequireAPIKey() error {
	if c.Vault.APIKey == "" {
		return errors.New(errors.ErrCodeConfigMissingKey,
			"OBSIDIAN_API_KEY is not set", nil).
			WithSuggestion("get your API key from Obsidian Settings > Local REST API > Security")
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.ConfigError("failed to marshal config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.ConfigError("failed to write config file", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
