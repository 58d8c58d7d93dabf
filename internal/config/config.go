// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package config

import (
	"errors"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level Playbook configuration.
type Config struct {
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
}

// NetworkingConfig controls how the HTTP API listens for connections.
type NetworkingConfig struct {
	Listen       string        `mapstructure:"listen"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig selects the play storage backend.
type StorageConfig struct {
	Backend          string `mapstructure:"backend"`
	DataDir          string `mapstructure:"data_dir"`
	DSN              string `mapstructure:"dsn"`
	VectorDimensions int    `mapstructure:"vector_dimensions"`
}

// EmbeddingConfig selects the embedding provider and model.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// Supported backend and provider names.
var (
	validBackends  = []string{"sqlite", "postgres"}
	validProviders = []string{"openai", "google"}
)

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:8000")
	v.SetDefault("networking.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("networking.read_timeout", "30s")
	v.SetDefault("networking.write_timeout", "60s")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.vector_dimensions", 1536)
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.dimensions", 0)
}

// SetupEnv enables PLAYBOOK_ environment overrides (networking.listen is
// PLAYBOOK_NETWORKING_LISTEN) and binds the legacy OPENAI_API_KEY and
// OPENAI_EMBEDDING_MODEL variables as fallbacks for the embedding keys.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("PLAYBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit binds replace the automatic name, so the prefixed one is listed first.
	_ = v.BindEnv("embedding.api_key", "PLAYBOOK_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("embedding.model", "PLAYBOOK_EMBEDDING_MODEL", "OPENAI_EMBEDDING_MODEL")
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix PLAYBOOK_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, pberr.Errorf(pberr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, pberr.Errorf(pberr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	cfg.applyProviderDefaults()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, pberr.Errorf(pberr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// applyProviderDefaults fills settings whose default depends on the
// provider. gemini-embedding-001 returns 3072 values unless asked for fewer,
// so google requests storage.vector_dimensions when embedding.dimensions is
// unset.
func (c *Config) applyProviderDefaults() {
	if c.Embedding.Provider == "google" && c.Embedding.Dimensions == 0 && c.Storage.VectorDimensions > 0 {
		c.Embedding.Dimensions = c.Storage.VectorDimensions
	}
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateEmbedding()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue, "config: networking.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Networking.Listen)
		if err != nil {
			errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
				"config: networking.listen must be a valid host:port address, got %q: %w",
				c.Networking.Listen, err,
			))
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
					"config: networking.listen port must be a number, got %q",
					portStr,
				))
			} else if port < 0 || port > 65535 {
				errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
					"config: networking.listen port must be between 0 and 65535, got %d",
					port,
				))
			}
		}
	}

	for i, origin := range c.Networking.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
				"config: networking.cors_origins[%d] must not be empty", i))
		}
	}

	if c.Networking.ReadTimeout < 0 {
		errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
			"config: networking.read_timeout must not be negative, got %s", c.Networking.ReadTimeout))
	}
	if c.Networking.WriteTimeout < 0 {
		errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
			"config: networking.write_timeout must not be negative, got %s", c.Networking.WriteTimeout))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	if !slices.Contains(validBackends, c.Storage.Backend) {
		errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [%s], got %q",
			strings.Join(validBackends, ", "), c.Storage.Backend,
		))
	}

	if c.Storage.Backend == "postgres" && c.Storage.DSN == "" {
		errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
			"config: storage.dsn is required for the postgres backend"))
	}

	if c.Storage.VectorDimensions <= 0 {
		errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
			"config: storage.vector_dimensions must be greater than 0, got %d",
			c.Storage.VectorDimensions,
		))
	}

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	if !slices.Contains(validProviders, c.Embedding.Provider) {
		errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
			"config: embedding.provider must be one of [%s], got %q",
			strings.Join(validProviders, ", "), c.Embedding.Provider,
		))
	}

	if c.Embedding.Dimensions < 0 {
		errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
			"config: embedding.dimensions must not be negative, got %d",
			c.Embedding.Dimensions,
		))
	} else if c.Embedding.Dimensions > 0 && c.Embedding.Dimensions != c.Storage.VectorDimensions {
		// Stored and query vectors must have the width the backend was created with.
		errs = append(errs, pberr.Errorf(pberr.CodeConfigValidateInvalidValue,
			"config: embedding.dimensions (%d) must match storage.vector_dimensions (%d)",
			c.Embedding.Dimensions, c.Storage.VectorDimensions,
		))
	}

	return errs
}
