package playback

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/gotune-core/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/gotune-core/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/logger"
	"github.com/tejashwikalptaru/gotune-core/internal/metadata"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
	"github.com/tejashwikalptaru/gotune-core/internal/testutil"
	"github.com/tejashwikalptaru/gotune-core/internal/track"
)

type fakeQueue struct {
	mu    sync.Mutex
	next  map[domain.TrackID]domain.TrackID
	stops int
}

func (q *fakeQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stops++
}

func (q *fakeQueue) Subsequent(id domain.TrackID) (domain.TrackID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	next, ok := q.next[id]
	return next, ok
}

func (q *fakeQueue) stopCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stops
}

type fakeProfiles struct {
	mu    sync.Mutex
	saved map[domain.TrackID]domain.PlaybackProfile
	last  map[domain.TrackID]time.Duration
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		saved: make(map[domain.TrackID]domain.PlaybackProfile),
		last:  make(map[domain.TrackID]time.Duration),
	}
}

func (p *fakeProfiles) Save(profile domain.PlaybackProfile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved[profile.Track] = profile
}

func (p *fakeProfiles) Get(id domain.TrackID) (domain.PlaybackProfile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	profile, ok := p.saved[id]
	return profile, ok
}

func (p *fakeProfiles) MarkLastPosition(id domain.TrackID, position time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last[id] = position
}

func (p *fakeProfiles) LastPosition(id domain.TrackID) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	position, ok := p.last[id]
	return position, ok
}

var (
	_ ports.PlayQueue        = (*fakeQueue)(nil)
	_ ports.PlaybackProfiles = (*fakeProfiles)(nil)
)

type chainFixture struct {
	manager  *ContextManager
	engine   *mock.Engine
	reader   *mock.MetadataReader
	preparer *mock.Preparer
	queue    *fakeQueue
	profiles *fakeProfiles
	store    *track.Store
	registry *metadata.Registry
	events   *testutil.EventCollector
	start    *StartChain
	stop     *StopChain
}

func newChainFixture(t *testing.T) *chainFixture {
	t.Helper()

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(eventbus.WithLogger(log))
	t.Cleanup(func() { _ = bus.Close() })

	pools := metadata.NewPools(metadata.PoolsConfig{High: 2, Medium: 2, Low: 1, Registry: 2}, log, nil)
	reader := mock.NewMetadataReader()

	f := &chainFixture{
		manager:  NewContextManager(log),
		engine:   mock.NewEngine(),
		reader:   reader,
		preparer: mock.NewPreparer(),
		queue:    &fakeQueue{next: make(map[domain.TrackID]domain.TrackID)},
		profiles: newFakeProfiles(),
		store:    track.NewStore(),
		registry: metadata.NewRegistry(reader, pools.Registry, bus, log),
		events:   testutil.CollectEvents(bus),
	}

	cfg := ChainConfig{
		Manager:  f.manager,
		Engine:   f.engine,
		Queue:    f.queue,
		Profiles: f.profiles,
		Preparer: f.preparer,
		Store:    f.store,
		Registry: f.registry,
		Pools:    pools,
		Bus:      bus,
		Logger:   log,
	}
	f.start = NewStartChain(cfg)
	f.stop = NewStopChain(cfg)

	t.Cleanup(f.start.WaitBackground)
	return f
}

// playing puts path in the store with duration and makes the engine play it at position.
func (f *chainFixture) playing(t *testing.T, path string, position, duration time.Duration) domain.Track {
	t.Helper()

	tr, _ := f.store.Acquire(path)
	tr, err := f.store.Update(tr.ID, func(t *domain.Track) { t.Duration = duration })
	require.NoError(t, err)
	require.NoError(t, f.engine.Start(tr, position))
	return tr
}

func testLogger() *slog.Logger {
	return logger.NewTestLogger()
}
