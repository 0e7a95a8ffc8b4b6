// Package config loads the playback core configuration.
//
// Configuration is a YAML file read through an afero filesystem, validated with
// go-playground/validator and overridden by a few environment variables.
package config

import (
	"runtime"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Logger   Logger   `yaml:"logger"`
	Pools    Pools    `yaml:"pools"`
	Cache    Cache    `yaml:"cache"`
	Playback Playback `yaml:"playback"`
	Library  Library  `yaml:"library"`
	Metrics  Metrics  `yaml:"metrics"`
}

// Logger holds the configuration for logging.
type Logger struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Format     string `yaml:"format" validate:"omitempty,oneof=text logfmt json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

// Pools sizes the metadata worker pools by concurrency.
type Pools struct {
	High     int `yaml:"high" validate:"gte=1"`
	Medium   int `yaml:"medium" validate:"gte=1"`
	Low      int `yaml:"low" validate:"gte=1"`
	Registry int `yaml:"registry" validate:"gte=1"`
}

// Cache selects where the metadata registry snapshot is stored.
type Cache struct {
	// Backend is "file" (JSON file at Path) or "preferences" (host application preferences)
	Backend string `yaml:"backend" validate:"oneof=file preferences"`
	Path    string `yaml:"path" validate:"required_if=Backend file"`
}

// Playback holds chain behaviour switches.
type Playback struct {
	RememberPositions bool          `yaml:"remember_positions"`
	GapBetweenTracks  time.Duration `yaml:"gap_between_tracks" validate:"gte=0"`
	MaxReadFailures   int           `yaml:"max_read_failures" validate:"gte=0"`
}

// Library holds library folders and watching.
type Library struct {
	Folders []string `yaml:"folders" validate:"dive,required"`
	Watch   bool     `yaml:"watch"`
}

// Metrics holds the Prometheus endpoint address; empty disables it.
type Metrics struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	cores := runtime.NumCPU()

	return Config{
		Logger: Logger{
			Level:  "info",
			Format: "text",
		},
		Pools: Pools{
			High:     cores,
			Medium:   max(cores/2, 2),
			Low:      max(cores/4, 1),
			Registry: cores,
		},
		Cache: Cache{
			Backend: "file",
			Path:    "metadata-cache.json",
		},
		Playback: Playback{
			RememberPositions: true,
			MaxReadFailures:   3,
		},
	}
}
