package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/gotune-core/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/gotune-core/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/logger"
	"github.com/tejashwikalptaru/gotune-core/internal/metadata"
	"github.com/tejashwikalptaru/gotune-core/internal/playback"
	"github.com/tejashwikalptaru/gotune-core/internal/testutil"
	"github.com/tejashwikalptaru/gotune-core/internal/track"
)

const waitTimeout = 2 * time.Second

type serviceFixture struct {
	fs       afero.Fs
	bus      *eventbus.SyncEventBus
	engine   *mock.Engine
	reader   *mock.MetadataReader
	preparer *mock.Preparer
	store    *track.Store
	registry *metadata.Registry
	pools    *metadata.Pools
	manager  *playback.ContextManager
	events   *testutil.EventCollector

	queue    *QueueService
	library  *LibraryService
	profiles *ProfileService
	player   *PlaybackService
}

type fixtureOption func(*PlaybackConfig)

func withGap(gap time.Duration) fixtureOption {
	return func(cfg *PlaybackConfig) { cfg.Gap = gap }
}

func newServiceFixture(t *testing.T, opts ...fixtureOption) *serviceFixture {
	t.Helper()
	t.Cleanup(func() { testutil.VerifyNoLeaks(t) })

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(eventbus.WithLogger(log))

	f := &serviceFixture{
		fs:       afero.NewMemMapFs(),
		bus:      bus,
		engine:   mock.NewEngine(),
		reader:   mock.NewMetadataReader(),
		preparer: mock.NewPreparer(),
		store:    track.NewStore(),
		pools:    metadata.NewPools(metadata.PoolsConfig{High: 2, Medium: 2, Low: 2, Registry: 2}, log, nil),
		manager:  playback.NewContextManager(log),
		events:   testutil.CollectEvents(bus),
	}
	f.registry = metadata.NewRegistry(f.reader, f.pools.Registry, bus, log)
	f.queue = NewQueueService(log, bus, f.store, f.registry, f.pools, nil)
	f.library = NewLibraryService(log, f.fs, bus, f.store, f.registry, f.pools, nil)
	f.profiles = NewProfileService(log, true)

	chainCfg := playback.ChainConfig{
		Manager:  f.manager,
		Engine:   f.engine,
		Queue:    f.queue,
		Profiles: f.profiles,
		Preparer: f.preparer,
		Store:    f.store,
		Registry: f.registry,
		Pools:    f.pools,
		Bus:      bus,
		Logger:   log,
	}

	cfg := PlaybackConfig{
		Engine:         f.engine,
		Store:          f.store,
		Manager:        f.manager,
		Start:          playback.NewStartChain(chainCfg),
		Stop:           playback.NewStopChain(chainCfg),
		Queue:          f.queue,
		Bus:            bus,
		Logger:         log,
		UpdateInterval: 5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.player = NewPlaybackService(cfg)

	t.Cleanup(func() {
		require.NoError(t, f.player.Shutdown())
		require.NoError(t, f.library.Shutdown())
		_ = bus.Close()
	})

	return f
}

// songs returns n absolute mp3 paths under dir.
func songs(dir string, n int) []string {
	files := make([]string, n)
	for i := range files {
		files[i] = fmt.Sprintf("%s/song-%02d.mp3", dir, i)
	}
	return files
}

func ids(files []string) []domain.TrackID {
	out := make([]domain.TrackID, len(files))
	for i, f := range files {
		out[i] = domain.NewTrackID(f)
	}
	return out
}

func trackIDs(tracks []domain.Track) []domain.TrackID {
	out := make([]domain.TrackID, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

// waitDone waits for a request to finish and returns its outcome.
func waitDone(t *testing.T, rc *playback.RequestContext) playback.Outcome {
	t.Helper()
	require.NotNil(t, rc)
	require.True(t, rc.Wait(waitTimeout), "request did not finish")
	return rc.Outcome()
}
