// Package config loads pipeline configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Store     StoreConfig     `yaml:"store"`
	TopK      int             `yaml:"top_k"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url,omitempty"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	MaxConcurrency    int     `yaml:"max_concurrency"`
}

// ChunkingConfig configures document splitting.
type ChunkingConfig struct {
	MaxLength int `yaml:"max_length"`
	Overlap   int `yaml:"overlap"`
}

// StoreConfig configures where snapshots are persisted.
type StoreConfig struct {
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
}

// Default returns the configuration used when a field is absent.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			BatchSize:      32,
			MaxConcurrency: 4,
		},
		Chunking: ChunkingConfig{
			MaxLength: 1000,
			Overlap:   200,
		},
		Store: StoreConfig{
			Path:        "ragkit-store",
			Compression: "zstd",
		},
		TopK: 5,
	}
}

// Load reads a YAML config file, applying defaults for absent fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
