package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvCachePath, "")

	cfg, err := Load(afero.NewMemMapFs(), "/etc/gotune/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoad_ParsesFile(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvCachePath, "")

	fs := afero.NewMemMapFs()
	content := `
logger:
  level: debug
  format: json
pools:
  high: 8
  medium: 4
  low: 2
  registry: 6
cache:
  backend: file
  path: /var/cache/gotune/metadata.json
playback:
  remember_positions: false
  gap_between_tracks: 2s
  max_read_failures: 5
library:
  folders: [/music]
  watch: true
metrics:
  addr: localhost:9090
`
	require.NoError(t, afero.WriteFile(fs, "/config.yaml", []byte(content), 0o644))

	cfg, err := Load(fs, "/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, Pools{High: 8, Medium: 4, Low: 2, Registry: 6}, cfg.Pools)
	assert.Equal(t, "/var/cache/gotune/metadata.json", cfg.Cache.Path)
	assert.False(t, cfg.Playback.RememberPositions)
	assert.Equal(t, 2*time.Second, cfg.Playback.GapBetweenTracks)
	assert.Equal(t, 5, cfg.Playback.MaxReadFailures)
	assert.Equal(t, []string{"/music"}, cfg.Library.Folders)
	assert.True(t, cfg.Library.Watch)
	assert.Equal(t, "localhost:9090", cfg.Metrics.Addr)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvCachePath, "")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/config.yaml", []byte("library:\n  watch: true\n"), 0o644))

	cfg, err := Load(fs, "/config.yaml")
	require.NoError(t, err)

	assert.True(t, cfg.Library.Watch)
	assert.Equal(t, Default().Pools, cfg.Pools)
	assert.Equal(t, 3, cfg.Playback.MaxReadFailures)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvCachePath, "/tmp/cache.json")

	cfg, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logger.Level)
	assert.Equal(t, "/tmp/cache.json", cfg.Cache.Path)
}

func TestLoad_InvalidYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/config.yaml", []byte("pools: [unterminated"), 0o644))

	_, err := Load(fs, "/config.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero pool", func(c *Config) { c.Pools.High = 0 }, true},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }, true},
		{"file backend without path", func(c *Config) { c.Cache.Path = "" }, true},
		{"preferences backend without path", func(c *Config) {
			c.Cache.Backend = "preferences"
			c.Cache.Path = ""
		}, false},
		{"bad log format", func(c *Config) { c.Logger.Format = "xml" }, true},
		{"negative failures", func(c *Config) { c.Playback.MaxReadFailures = -1 }, true},
		{"bad metrics addr", func(c *Config) { c.Metrics.Addr = "nope" }, true},
		{"empty folder", func(c *Config) { c.Library.Folders = []string{""} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvCachePath, "")

	fs := afero.NewMemMapFs()
	cfg := Default()
	cfg.Library.Folders = []string{"/music", "/podcasts"}

	require.NoError(t, Save(fs, "/home/user/.config/gotune/config.yaml", cfg))

	loaded, err := Load(fs, "/home/user/.config/gotune/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
