package embed

import (
	"fmt"
	"strings"

	"github.com/vaultindex/vaultindex/internal/config"
	"github.com/vaultindex/vaultindex/internal/errors"
)

// NewProvider creates the embedding provider selected by the
// configuration. Remote providers that need an API key fail here,
// before any vault or store work happens.
func NewProvider(cfg config.IndexConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderDefault, "":
		return NewDefaultProvider(), nil
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.OllamaHost, cfg.OllamaModel), nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel)
	case config.ProviderGoogle:
		return NewGoogleProvider(cfg.GoogleKey, cfg.GoogleModel)
	case config.ProviderCohere:
		return NewCohereProvider(cfg.CohereKey, cfg.CohereModel)
	default:
		return nil, errors.ConfigError(
			fmt.Sprintf("unknown embedding provider %q", cfg.Provider), nil)
	}
}
