package vectorstore

import (
	"fmt"

	"go.uber.org/zap"
)

// Supported provider names.
const (
	ProviderChromem = "chromem"
	ProviderQdrant  = "qdrant"
)

// Config selects and configures a store provider.
type Config struct {
	Provider string
	Chromem  ChromemConfig
	Qdrant   QdrantConfig
}

// New builds a Store for the configured provider.
func New(config Config, logger *zap.Logger) (Store, error) {
	switch config.Provider {
	case ProviderChromem:
		return NewChromemStore(config.Chromem, logger)
	case ProviderQdrant:
		return NewQdrantStore(config.Qdrant, logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, config.Provider)
	}
}
