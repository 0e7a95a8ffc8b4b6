package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/playback"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
	"github.com/tejashwikalptaru/gotune-core/internal/track"
)

const defaultUpdateInterval = 333 * time.Millisecond

// PlaybackConfig holds the collaborators of the playback service.
type PlaybackConfig struct {
	Engine  ports.AudioEngine
	Store   *track.Store
	Manager *playback.ContextManager
	Start   *playback.StartChain
	Stop    *playback.StopChain
	Queue   *QueueService
	Bus     ports.EventBus
	Logger  *slog.Logger

	// Gap is the silence between tracks when the queue advances on its own
	Gap time.Duration

	// UpdateInterval is how often the engine is polled for a finished track
	UpdateInterval time.Duration
}

// PlaybackService is the delegate that turns user intents into request
// contexts and runs them through the start and stop chains.
// All operations are thread-safe via sync.RWMutex.
type PlaybackService struct {
	// Dependencies (injected)
	logger  *slog.Logger
	engine  ports.AudioEngine
	store   *track.Store
	manager *playback.ContextManager
	start   *playback.StartChain
	stop    *playback.StopChain
	queue   *QueueService
	bus     ports.EventBus

	gap            time.Duration
	updateInterval time.Duration

	// State
	current    domain.TrackID
	wasPlaying bool
	manualStop bool
	waiting    bool

	// Concurrency control
	mu            sync.RWMutex
	stopUpdate    chan struct{}
	updateRunning bool
	updateWg      sync.WaitGroup

	subs []domain.SubscriptionID
}

// NewPlaybackService creates a new playback service and starts its update routine.
func NewPlaybackService(cfg PlaybackConfig) *PlaybackService {
	interval := cfg.UpdateInterval
	if interval <= 0 {
		interval = defaultUpdateInterval
	}

	s := &PlaybackService{
		logger:         cfg.Logger.With(slog.String("service", "PlaybackService")),
		engine:         cfg.Engine,
		store:          cfg.Store,
		manager:        cfg.Manager,
		start:          cfg.Start,
		stop:           cfg.Stop,
		queue:          cfg.Queue,
		bus:            cfg.Bus,
		gap:            cfg.Gap,
		updateInterval: interval,
		stopUpdate:     make(chan struct{}),
	}

	s.subs = append(s.subs,
		cfg.Bus.Subscribe(domain.EventTrackChanged, s.handleTrackChanged),
		cfg.Bus.Subscribe(domain.EventTrackNotPlayed, s.handleTrackNotPlayed),
		cfg.Bus.Subscribe(domain.EventGapStarted, s.handleGapStarted),
	)

	cfg.Queue.OnAutoplay(func(index int) {
		if _, err := s.PlayAt(index); err != nil {
			s.logger.Warn("autoplay failed", slog.Int("index", index), slog.Any("error", err))
		}
	})

	s.logger.Debug("playback service initialized", slog.Duration("gap", cfg.Gap))
	s.startUpdateRoutine()

	return s
}

// Play starts the requested track. The returned context is done once the
// transition completed or terminated.
func (s *PlaybackService) Play(id domain.TrackID, params *playback.RequestParams) *playback.RequestContext {
	s.mu.Lock()
	s.manualStop = false
	s.mu.Unlock()

	s.queue.SetCurrent(id)
	return s.execute(id, true, params)
}

// PlayAt plays the queue entry at index.
func (s *PlaybackService) PlayAt(index int) (*playback.RequestContext, error) {
	id, err := s.queue.TrackAt(index)
	if err != nil {
		return nil, err
	}
	return s.Play(id, nil), nil
}

// Next plays the track queued after the current entry. It steps from the
// entry the queue points at, so a skip issued while a transition is still in
// flight moves past the track being started.
func (s *PlaybackService) Next() (*playback.RequestContext, error) {
	index := s.currentEntry()
	if index < 0 {
		return nil, domain.ErrEndOfQueue
	}

	next, err := s.queue.TrackAt(index + 1)
	if err != nil {
		return nil, domain.ErrEndOfQueue
	}
	return s.Play(next, nil), nil
}

// Previous plays the track queued before the current entry.
func (s *PlaybackService) Previous() (*playback.RequestContext, error) {
	index := s.currentEntry()
	if index <= 0 {
		return nil, domain.ErrStartOfQueue
	}

	prev, err := s.queue.TrackAt(index - 1)
	if err != nil {
		return nil, domain.ErrStartOfQueue
	}
	return s.Play(prev, nil), nil
}

// currentEntry returns the queue index of the current entry, falling back to
// the last completed track when the queue has none. It returns -1 if neither
// is queued.
func (s *PlaybackService) currentEntry() int {
	if index := s.queue.CurrentIndex(); index >= 0 {
		return index
	}
	return s.queue.IndexOfTrack(s.Current())
}

// Stop runs the stop chain and stops the queue from advancing.
func (s *PlaybackService) Stop() *playback.RequestContext {
	s.mu.Lock()
	s.manualStop = true
	s.mu.Unlock()

	s.queue.Stop()
	rc := s.newRequest(domain.NoTrack, true, nil)
	s.stop.Execute(rc)
	return rc
}

// TogglePause pauses a playing track or resumes a paused one.
func (s *PlaybackService) TogglePause() error {
	var (
		paused bool
		err    error
	)

	switch s.engine.State() {
	case domain.StatePlaying:
		err = s.engine.Pause()
		paused = true
	case domain.StatePaused:
		err = s.engine.Resume()
	default:
		return domain.ErrNotPlaying
	}
	if err != nil {
		return domain.NewServiceError("PlaybackService", "TogglePause", "engine refused", err)
	}

	s.bus.Publish(domain.NewPauseToggledEvent(s.store.Lookup(s.Current()), paused, s.engine.Position()))
	return nil
}

// Seek moves the playing track to position.
func (s *PlaybackService) Seek(position time.Duration) error {
	if position < 0 {
		return domain.ErrInvalidPosition
	}
	if !s.engine.State().IsActive() {
		return domain.ErrNotPlaying
	}

	if err := s.engine.Seek(position); err != nil {
		return domain.NewServiceError("PlaybackService", "Seek", "engine refused", err)
	}

	s.bus.Publish(domain.NewTrackSeekedEvent(s.store.Lookup(s.Current()), position))
	return nil
}

// State returns the player state. A request waiting in a gap reports StateWaiting.
func (s *PlaybackService) State() domain.PlaybackState {
	state := s.engine.State()
	if state != domain.StateStopped {
		return state
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.waiting && s.manager.Current() != nil {
		return domain.StateWaiting
	}
	return state
}

// Current returns the track the last completed transition moved to.
func (s *PlaybackService) Current() domain.TrackID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Status returns a snapshot of the player for presenters.
func (s *PlaybackService) Status() domain.PlayerStatus {
	status := domain.PlayerStatus{
		State:       s.State(),
		Position:    s.engine.Position(),
		QueueIndex:  s.queue.CurrentIndex(),
		QueueLength: s.queue.Len(),
	}

	if current := s.Current(); !current.IsZero() {
		t := s.store.Lookup(current)
		status.Track = &t
	}
	if s.manager.Current() != nil {
		status.PendingCount = 1
	}

	return status
}

// Shutdown stops the update routine and waits for background work.
func (s *PlaybackService) Shutdown() error {
	s.mu.Lock()

	// Stop update routine
	if s.updateRunning {
		close(s.stopUpdate)
		s.updateRunning = false
	}

	// Release lock before waiting for goroutine to exit (to avoid deadlock)
	s.mu.Unlock()

	s.updateWg.Wait()

	for _, id := range s.subs {
		s.bus.Unsubscribe(id)
	}
	s.start.WaitBackground()

	return nil
}

func (s *PlaybackService) newRequest(id domain.TrackID, byUser bool, params *playback.RequestParams) *playback.RequestContext {
	return playback.NewRequestContext(
		s.State(),
		s.Current(),
		s.engine.Position(),
		id,
		byUser,
		params,
	)
}

func (s *PlaybackService) execute(id domain.TrackID, byUser bool, params *playback.RequestParams) *playback.RequestContext {
	rc := s.newRequest(id, byUser, params)
	s.start.Execute(rc)
	return rc
}

// advance moves the queue on after a track finished on its own.
func (s *PlaybackService) advance() {
	if !s.queue.IsActive() {
		return
	}

	current := s.Current()
	index := s.currentEntry()
	next, err := s.queue.TrackAt(index + 1)
	if index < 0 || err != nil {
		s.logger.Debug("end of queue reached", slog.String("track", current.Path()))
		s.queue.Stop()
		return
	}

	s.queue.SetCurrent(next)
	s.execute(next, false, &playback.RequestParams{Delay: s.gap})
}

func (s *PlaybackService) handleTrackChanged(event domain.Event) {
	e, ok := event.(domain.TrackChangedEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = e.Current.ID
	s.wasPlaying = e.State == domain.StatePlaying
	s.waiting = false
}

func (s *PlaybackService) handleTrackNotPlayed(event domain.Event) {
	if _, ok := event.(domain.TrackNotPlayedEvent); !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = domain.NoTrack
	s.wasPlaying = false
	s.waiting = false
}

func (s *PlaybackService) handleGapStarted(event domain.Event) {
	if _, ok := event.(domain.GapStartedEvent); !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting = true
}

// startUpdateRoutine starts a goroutine that watches the engine for finished tracks.
func (s *PlaybackService) startUpdateRoutine() {
	s.mu.Lock()
	if s.updateRunning {
		s.mu.Unlock()
		return
	}
	s.updateRunning = true
	s.updateWg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.updateWg.Done()
		ticker := time.NewTicker(s.updateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopUpdate:
				return

			case <-ticker.C:
				s.checkFinished()
			}
		}
	}()
}

// checkFinished advances the queue when the engine stopped on its own.
// A request in flight owns the engine, so nothing is decided while one runs.
func (s *PlaybackService) checkFinished() {
	if s.manager.Current() != nil {
		return
	}

	state := s.engine.State()

	s.mu.Lock()
	finished := s.wasPlaying && state == domain.StateStopped && !s.manualStop
	s.wasPlaying = state == domain.StatePlaying
	s.mu.Unlock()

	if finished {
		s.logger.Debug("track finished", slog.String("track", s.Current().Path()))
		s.advance()
	}
}

// Verify that PlaybackService implements the expected interface patterns
var _ interface {
	Play(domain.TrackID, *playback.RequestParams) *playback.RequestContext
	PlayAt(int) (*playback.RequestContext, error)
	Next() (*playback.RequestContext, error)
	Previous() (*playback.RequestContext, error)
	Stop() *playback.RequestContext
	TogglePause() error
	Seek(time.Duration) error
	State() domain.PlaybackState
	Shutdown() error
} = (*PlaybackService)(nil)
