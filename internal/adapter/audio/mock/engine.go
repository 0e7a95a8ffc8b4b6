// Package mock provides in-memory implementations of the audio ports.
// They are used for tests and headless runs where no audio device is present.
package mock

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

// Engine is a mock implementation of the AudioEngine interface.
// It simulates audio output in memory without producing any sound.
//
// Thread-safety: This implementation is thread-safe.
type Engine struct {
	// Dependencies
	logger *slog.Logger

	// Current output
	track    domain.Track
	position time.Duration
	state    domain.PlaybackState
	mu       sync.RWMutex

	// Call bookkeeping
	starts []StartCall
	stops  int

	// Behavior configuration (for testing error scenarios)
	failStart error
	failStop  error
}

// StartCall records one Start invocation.
type StartCall struct {
	Track domain.TrackID
	From  time.Duration
}

// NewEngine creates a new mock audio engine.
func NewEngine() *Engine {
	return &Engine{
		logger: slog.New(slog.DiscardHandler),
		state:  domain.StateStopped,
	}
}

// SetLogger sets the logger for this engine.
// This should be called after construction before using the engine.
func (m *Engine) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger.With(slog.String("component", "mock-engine"))
}

// SetFailStart makes every Start return err (nil to succeed again).
func (m *Engine) SetFailStart(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStart = err
}

// SetFailStop makes every Stop return err (nil to succeed again).
func (m *Engine) SetFailStop(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStop = err
}

// Start begins simulated output of track at from.
func (m *Engine) Start(track domain.Track, from time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.starts = append(m.starts, StartCall{Track: track.ID, From: from})

	if m.failStart != nil {
		return domain.NewAudioEngineError("start", track.Path, -1, "mock start failed", m.failStart)
	}

	if track.ID.IsZero() {
		return domain.ErrInvalidFilePath
	}

	if from < 0 || (track.Duration > 0 && from > track.Duration) {
		return domain.ErrInvalidPosition
	}

	m.track = track
	m.position = from
	m.state = domain.StatePlaying

	m.logger.Debug("mock start", slog.String("track", track.Path), slog.Duration("from", from))
	return nil
}

// Stop halts simulated output.
func (m *Engine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stops++

	if m.failStop != nil {
		return domain.NewAudioEngineError("stop", m.track.Path, -1, "mock stop failed", m.failStop)
	}

	m.track = domain.Track{}
	m.position = 0
	m.state = domain.StateStopped
	return nil
}

// Pause suspends simulated output.
func (m *Engine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.StatePlaying {
		return domain.ErrNotPlaying
	}
	m.state = domain.StatePaused
	return nil
}

// Resume continues simulated output after Pause.
func (m *Engine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.StatePaused {
		return domain.ErrNotPlaying
	}
	m.state = domain.StatePlaying
	return nil
}

// Seek moves the simulated position.
func (m *Engine) Seek(position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.IsActive() {
		return domain.ErrNotPlaying
	}
	if position < 0 || (m.track.Duration > 0 && position > m.track.Duration) {
		return domain.ErrInvalidPosition
	}

	m.position = position
	return nil
}

// Position returns the simulated position.
func (m *Engine) Position() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.position
}

// State returns the simulated state.
func (m *Engine) State() domain.PlaybackState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Current returns the track being output, if any.
func (m *Engine) Current() (domain.Track, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.track, m.state.IsActive()
}

// SimulateProgress advances the position as if audio had played for delta.
// The position is clamped to the track duration.
func (m *Engine) SimulateProgress(delta time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.StatePlaying {
		return
	}

	m.position += delta
	if m.track.Duration > 0 && m.position > m.track.Duration {
		m.position = m.track.Duration
	}
}

// Finish ends the current track as if it had played to its end.
func (m *Engine) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.IsActive() {
		return
	}

	m.position = m.track.Duration
	m.state = domain.StateStopped
}

// Starts returns every recorded Start call.
func (m *Engine) Starts() []StartCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]StartCall(nil), m.starts...)
}

// StopCount returns how many times Stop was called.
func (m *Engine) StopCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stops
}

// Verify that Engine implements ports.AudioEngine
var _ ports.AudioEngine = (*Engine)(nil)
