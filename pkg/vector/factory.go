package vector

import (
	"fmt"

	"marco/pkg/config"
)

// NewProvider creates a vector provider from configuration.
//
// The persistPath argument is used by the chromem backend when the config
// does not name one.
func NewProvider(cfg *config.VectorStoreConfig, persistPath string) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vector store configuration is required")
	}

	switch cfg.Type {
	case config.VectorStoreChromem:
		path := cfg.PersistPath
		if path == "" {
			path = persistPath
		}
		return NewChromemProvider(ChromemConfig{
			PersistPath: path,
			Compress:    cfg.Compress,
		})

	case config.VectorStoreQdrant:
		return NewQdrantProvider(QdrantConfig{
			Host:   cfg.Host,
			Port:   cfg.Port,
			APIKey: cfg.APIKey,
			UseTLS: cfg.UseTLS,
		})

	default:
		return nil, fmt.Errorf("unknown vector store type: %q", cfg.Type)
	}
}
