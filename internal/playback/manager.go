package playback

import (
	"log/slog"
	"sync"
)

// ContextManager holds the request that is currently in charge of the player.
//
// Registration is last writer wins: a newer request displaces an older one, and
// the older one's completion then leaves the slot alone. Supersession is the only
// way a playback request is canceled.
type ContextManager struct {
	mu      sync.Mutex
	current *RequestContext
	logger  *slog.Logger
}

// NewContextManager creates an empty manager.
func NewContextManager(logger *slog.Logger) *ContextManager {
	return &ContextManager{
		logger: logger.With(slog.String("component", "context-manager")),
	}
}

// Begin registers rc as the current request, replacing any previous one.
func (m *ContextManager) Begin(rc *RequestContext) {
	m.mu.Lock()
	previous := m.current
	m.current = rc
	m.mu.Unlock()

	if previous != nil && previous != rc {
		m.logger.Debug("request superseded",
			slog.String("previous", previous.ID.String()),
			slog.String("current", rc.ID.String()))
	}
}

// Complete clears the slot if rc is the current request; otherwise it does nothing.
func (m *ContextManager) Complete(rc *RequestContext) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == rc {
		m.current = nil
	}
}

// IsCurrent reports whether rc is the current request.
func (m *ContextManager) IsCurrent(rc *RequestContext) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return rc != nil && m.current == rc
}

// Current returns the current request, or nil.
func (m *ContextManager) Current() *RequestContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
