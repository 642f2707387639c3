package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root string `yaml:"root" validate:"required"`
		// Ignore replaces the default ignored directory names when set.
		Ignore []string `yaml:"ignore"`
	} `yaml:"project"`
	Output struct {
		Dir string `yaml:"dir" validate:"required"`
		DB  string `yaml:"db" validate:"required"`
	} `yaml:"output"`
	Extract struct {
		Workers   int `yaml:"workers" validate:"gte=1"`
		CacheSize int `yaml:"cache_size" validate:"gte=0"`
	} `yaml:"extract"`
	Log struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
	} `yaml:"log"`
}

var validate = validator.New()

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Output.Dir = "docs"
	cfg.Output.DB = ".pydocod/pydocod.db"
	cfg.Extract.Workers = 4
	cfg.Extract.CacheSize = 1024
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig reads the YAML file at path over the defaults, applies
// PYDOCOD_* environment overrides and validates the result.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if root := os.Getenv("PYDOCOD_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if db := os.Getenv("PYDOCOD_DB"); db != "" {
		cfg.Output.DB = db
	}
	if dir := os.Getenv("PYDOCOD_OUTPUT_DIR"); dir != "" {
		cfg.Output.Dir = dir
	}
	if level := os.Getenv("PYDOCOD_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the field constraints. Callers that override fields after
// LoadConfig, such as command-line flags, validate again.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
