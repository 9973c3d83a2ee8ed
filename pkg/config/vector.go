package config

import "fmt"

// Vector store backends.
const (
	VectorStoreChromem = "chromem"
	VectorStoreQdrant  = "qdrant"
)

// VectorStoreConfig configures where bibliography vectors are kept.
//
// The default backend is chromem, an embedded store persisted under the
// workspace data directory. Qdrant is available for larger corpora.
type VectorStoreConfig struct {
	// Type selects the backend: "chromem" or "qdrant".
	Type string `yaml:"type,omitempty"`

	// Collection is the collection holding bibliography chunks.
	Collection string `yaml:"collection,omitempty"`

	// PersistPath is the on-disk location for the chromem backend.
	// Empty means the workspace vectors directory.
	PersistPath string `yaml:"persist_path,omitempty"`

	// Compress enables gzip compression of persisted chromem data.
	Compress bool `yaml:"compress,omitempty"`

	// Host and Port locate a Qdrant server.
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// APIKey authenticates against a managed Qdrant instance.
	APIKey string `yaml:"api_key,omitempty"`

	// UseTLS enables TLS for the Qdrant gRPC connection.
	UseTLS bool `yaml:"use_tls,omitempty"`
}

// SetDefaults applies default values.
func (c *VectorStoreConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = VectorStoreChromem
	}
	if c.Collection == "" {
		c.Collection = "bibliography"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
}

// Validate checks the configuration for errors.
func (c *VectorStoreConfig) Validate() error {
	switch c.Type {
	case VectorStoreChromem, VectorStoreQdrant:
	default:
		return fmt.Errorf("unsupported vector store type: %q", c.Type)
	}
	if c.Collection == "" {
		return fmt.Errorf("collection must not be empty")
	}
	if c.Type == VectorStoreQdrant {
		if c.Host == "" {
			return fmt.Errorf("host must not be empty for qdrant")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("invalid qdrant port: %d", c.Port)
		}
	}
	return nil
}
