// Package app wires the playback core together.
//
// It follows the dependency injection pattern: every collaborator is created
// here in order and handed to the components that need it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/tejashwikalptaru/gotune-core/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/gotune-core/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/gotune-core/internal/adapter/repository/file"
	"github.com/tejashwikalptaru/gotune-core/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/gotune-core/internal/adapter/tagreader"
	"github.com/tejashwikalptaru/gotune-core/internal/adapter/watcher"
	"github.com/tejashwikalptaru/gotune-core/internal/config"
	"github.com/tejashwikalptaru/gotune-core/internal/logger"
	"github.com/tejashwikalptaru/gotune-core/internal/metadata"
	"github.com/tejashwikalptaru/gotune-core/internal/metrics"
	"github.com/tejashwikalptaru/gotune-core/internal/playback"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
	"github.com/tejashwikalptaru/gotune-core/internal/service"
	"github.com/tejashwikalptaru/gotune-core/internal/track"
)

// ErrNoPreferences is returned when the preferences cache backend is selected
// without a host application providing preferences.
var ErrNoPreferences = errors.New("preferences cache backend needs fyne preferences")

// Config holds the application configuration and the host-provided collaborators.
type Config struct {
	// Settings is the loaded configuration file
	Settings config.Config

	// Fs is the filesystem files and the cache are read from (default: OS filesystem)
	Fs afero.Fs

	// Preferences backs the "preferences" cache backend
	Preferences fyne.Preferences

	// Registerer receives the metrics collectors (default: a private registry)
	Registerer prometheus.Registerer

	// LogOutput overrides the log destination (default: stderr)
	LogOutput io.Writer

	// Engine is the audio engine to drive (default: the in-memory engine)
	Engine ports.AudioEngine
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	return Config{
		Settings: config.Default(),
		Fs:       afero.NewOsFs(),
	}
}

// Application is the main application container.
// It holds all services and manages the application lifecycle.
type Application struct {
	// Configuration
	config Config
	logger *slog.Logger

	// Infrastructure
	registry  *prometheus.Registry
	metrics   *metrics.Recorder
	eventBus  *eventbus.SyncEventBus
	pools     *metadata.Pools
	metadata  *metadata.Registry
	cacheRepo ports.MetadataCacheRepository
	store     *track.Store
	manager   *playback.ContextManager
	engine    ports.AudioEngine
	watcher   *watcher.Watcher

	// Services
	queueService    *service.QueueService
	profileService  *service.ProfileService
	playbackService *service.PlaybackService
	libraryService  *service.LibraryService

	shutdownOnce sync.Once
}

// NewApplication creates a new application with all dependencies wired together.
//
// Initialization order:
// 1. Logger and metrics
// 2. Event bus
// 3. Worker pools, metadata reader and registry
// 4. Metadata cache (restored into the registry)
// 5. Track store, context manager and audio engine
// 6. Services and playback chains
// 7. Library watcher
func NewApplication(cfg Config) (*Application, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	settings := cfg.Settings

	app := &Application{config: cfg}

	// Step 1: Create logger and metrics
	app.logger = logger.NewLogger(logger.Config{
		Level:      logger.ParseLevel(settings.Logger.Level, slog.LevelInfo),
		Format:     settings.Logger.Format,
		File:       settings.Logger.File,
		MaxSizeMB:  settings.Logger.MaxSizeMB,
		MaxBackups: settings.Logger.MaxBackups,
		Output:     cfg.LogOutput,
	})
	app.logger.Info("starting gotune core", slog.String("version", GetVersionInfo().FullString()))

	reg := cfg.Registerer
	if reg == nil {
		app.registry = prometheus.NewRegistry()
		reg = app.registry
	}
	app.metrics = metrics.New(reg)

	// Step 2: Create event bus
	app.eventBus = eventbus.NewSyncEventBus(
		eventbus.WithLogger(app.logger),
		eventbus.WithMetrics(app.metrics),
	)

	// Step 3: Create pools, reader and metadata registry
	app.pools = metadata.NewPools(metadata.PoolsConfig{
		High:     settings.Pools.High,
		Medium:   settings.Pools.Medium,
		Low:      settings.Pools.Low,
		Registry: settings.Pools.Registry,
	}, app.logger, app.metrics)

	reader := tagreader.NewReader(cfg.Fs, app.logger)
	app.metadata = metadata.NewRegistry(reader, app.pools.Registry, app.eventBus, app.logger,
		metadata.WithMaxReadFailures(settings.Playback.MaxReadFailures),
		metadata.WithMetrics(app.metrics),
	)

	// Step 4: Restore the metadata cache
	repo, err := app.newCacheRepository()
	if err != nil {
		_ = app.eventBus.Close()
		return nil, err
	}
	app.cacheRepo = repo

	if err := app.metadata.Load(context.Background(), app.cacheRepo); err != nil {
		// Non-fatal - the registry fills again as files are read
		app.logger.Warn("failed to restore metadata cache", slog.Any("error", err))
	}

	// Step 5: Create store, context manager and engine
	app.store = track.NewStore()
	app.manager = playback.NewContextManager(app.logger)

	app.engine = cfg.Engine
	if app.engine == nil {
		engine := mock.NewEngine()
		engine.SetLogger(app.logger)
		app.engine = engine
	}

	// Step 6: Create services and chains
	app.queueService = service.NewQueueService(
		app.logger, app.eventBus, app.store, app.metadata, app.pools, app.metrics,
	)
	app.profileService = service.NewProfileService(app.logger, settings.Playback.RememberPositions)

	chainCfg := playback.ChainConfig{
		Manager:  app.manager,
		Engine:   app.engine,
		Queue:    app.queueService,
		Profiles: app.profileService,
		Preparer: tagreader.NewPreparer(cfg.Fs),
		Store:    app.store,
		Registry: app.metadata,
		Pools:    app.pools,
		Bus:      app.eventBus,
		Logger:   app.logger,
		Metrics:  app.metrics,
	}

	app.playbackService = service.NewPlaybackService(service.PlaybackConfig{
		Engine:  app.engine,
		Store:   app.store,
		Manager: app.manager,
		Start:   playback.NewStartChain(chainCfg),
		Stop:    playback.NewStopChain(chainCfg),
		Queue:   app.queueService,
		Bus:     app.eventBus,
		Logger:  app.logger,
		Gap:     settings.Playback.GapBetweenTracks,
	})

	app.libraryService = service.NewLibraryService(
		app.logger, cfg.Fs, app.eventBus, app.store, app.metadata, app.pools, app.metrics,
	)

	// Step 7: Create the library watcher
	if settings.Library.Watch && len(settings.Library.Folders) > 0 {
		w, err := watcher.New(app.libraryService, app.logger, watcher.Options{
			Filter: service.IsFormatSupported,
		})
		if err != nil {
			app.Shutdown()
			return nil, fmt.Errorf("failed to create library watcher: %w", err)
		}
		app.watcher = w
	}

	app.logger.Debug("all services initialized successfully")
	return app, nil
}

func (a *Application) newCacheRepository() (ports.MetadataCacheRepository, error) {
	cache := a.config.Settings.Cache

	switch cache.Backend {
	case "preferences":
		if a.config.Preferences == nil {
			return nil, ErrNoPreferences
		}
		return memory.NewMetadataCacheRepository(a.config.Preferences), nil
	default:
		return file.NewMetadataCacheRepository(a.config.Fs, cache.Path), nil
	}
}

// Run scans the configured library folders and starts watching them.
// It returns once the scans finished; the watcher keeps running until Shutdown.
func (a *Application) Run(ctx context.Context) error {
	for _, folder := range a.config.Settings.Library.Folders {
		if _, err := a.libraryService.ScanFolder(ctx, folder); err != nil {
			return fmt.Errorf("failed to scan %s: %w", folder, err)
		}
	}

	if a.watcher != nil {
		if err := a.watcher.Start(ctx, a.config.Settings.Library.Folders...); err != nil {
			return fmt.Errorf("failed to start library watcher: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application. It is safe to call more than once.
func (a *Application) Shutdown() {
	a.shutdownOnce.Do(a.shutdown)
}

func (a *Application) shutdown() {
	a.logger.Info("shutting down application")

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("failed to stop library watcher", slog.Any("error", err))
		}
	}

	// Shutdown services (in reverse order of creation)
	if a.libraryService != nil {
		if err := a.libraryService.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown library service", slog.Any("error", err))
		}
	}

	if a.playbackService != nil {
		if err := a.playbackService.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown playback service", slog.Any("error", err))
		}
	}

	// Save the metadata cache
	if a.cacheRepo != nil {
		if err := a.metadata.Save(context.Background(), a.cacheRepo); err != nil {
			a.logger.Warn("failed to save metadata cache", slog.Any("error", err))
		}
	}

	if err := a.eventBus.Close(); err != nil {
		a.logger.Warn("failed to close event bus", slog.Any("error", err))
	}

	a.logger.Info("application shutdown complete")
}

// Playback returns the playback service.
func (a *Application) Playback() *service.PlaybackService {
	return a.playbackService
}

// Queue returns the queue service.
func (a *Application) Queue() *service.QueueService {
	return a.queueService
}

// Library returns the library service.
func (a *Application) Library() *service.LibraryService {
	return a.libraryService
}

// Profiles returns the playback profile service.
func (a *Application) Profiles() *service.ProfileService {
	return a.profileService
}

// EventBus returns the application event bus.
func (a *Application) EventBus() ports.EventBus {
	return a.eventBus
}

// Metadata returns the metadata registry.
func (a *Application) Metadata() *metadata.Registry {
	return a.metadata
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Gatherer returns the private metrics registry, nil when the host supplied a Registerer.
func (a *Application) Gatherer() prometheus.Gatherer {
	if a.registry == nil {
		return nil
	}
	return a.registry
}
