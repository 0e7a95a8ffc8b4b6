package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvLogLevel  = "GOTUNE_LOG_LEVEL"
	EnvCachePath = "GOTUNE_CACHE_PATH"
)

// Load reads the YAML file at path from fsys on top of Default().
// A missing file is not an error; the defaults (plus env overrides) are returned.
func Load(fsys afero.Fs, path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := afero.ReadFile(fsys, path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks struct constraints.
func Validate(cfg Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(fsys afero.Fs, path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := parentDir(path); dir != "" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	return afero.WriteFile(fsys, path, data, 0o644)
}

func applyEnv(cfg *Config) {
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Logger.Level = level
	}
	if path := os.Getenv(EnvCachePath); path != "" {
		cfg.Cache.Path = path
	}
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			return path[:i]
		}
	}
	return ""
}
