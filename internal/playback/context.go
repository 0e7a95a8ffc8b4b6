// Package playback implements the playback transition pipeline: request
// contexts, the context manager that tracks the current request, and the
// chains of actions that move the player from one track to another.
package playback

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

// Outcome is how a chain run ended.
type Outcome int

const (
	// OutcomePending means the run has not ended yet
	OutcomePending Outcome = iota

	// OutcomeCompleted means every action proceeded
	OutcomeCompleted

	// OutcomeTerminated means an action terminated the run
	OutcomeTerminated
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeCompleted:
		return "completed"
	case OutcomeTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// RequestParams are the mutable parameters of one request.
// They are owned by the chain run for its whole lifetime.
type RequestParams struct {
	// StartPosition is where to start the requested track, nil for "not requested"
	StartPosition *time.Duration

	// Delay is the gap to wait before the engine starts
	Delay time.Duration

	// Step holds data actions pass to later actions
	Step map[string]any
}

// StartAt returns params requesting a start position.
func StartAt(position time.Duration) *RequestParams {
	return &RequestParams{StartPosition: &position}
}

// RequestContext captures the player state and intent of one transition request.
//
// Fields other than the outcome are written only by the chain run that owns the
// context; read them from elsewhere after Done is closed.
type RequestContext struct {
	// ID correlates log lines of one request
	ID uuid.UUID

	CurrentState        domain.PlaybackState
	CurrentTrack        domain.TrackID
	CurrentSeekPosition time.Duration
	RequestedTrack      domain.TrackID
	RequestedByUser     bool
	Params              *RequestParams

	// GapContextID is set while the request waits in a gap, uuid.Nil otherwise
	GapContextID uuid.UUID

	mu      sync.Mutex
	started bool
	done    chan struct{}
	outcome Outcome
	err     error
}

// NewRequestContext builds a context from a snapshot of the player. It has no side effects.
func NewRequestContext(
	state domain.PlaybackState,
	currentTrack domain.TrackID,
	seek time.Duration,
	requestedTrack domain.TrackID,
	byUser bool,
	params *RequestParams,
) *RequestContext {
	if params == nil {
		params = &RequestParams{}
	}
	if params.Step == nil {
		params.Step = make(map[string]any)
	}

	return &RequestContext{
		ID:                  uuid.New(),
		CurrentState:        state,
		CurrentTrack:        currentTrack,
		CurrentSeekPosition: seek,
		RequestedTrack:      requestedTrack,
		RequestedByUser:     byUser,
		Params:              params,
		done:                make(chan struct{}),
	}
}

// Done is closed when the chain run for this context ended.
func (rc *RequestContext) Done() <-chan struct{} {
	return rc.done
}

// Outcome returns how the run ended, or OutcomePending.
func (rc *RequestContext) Outcome() Outcome {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.outcome
}

// Err returns the error the run was terminated with.
func (rc *RequestContext) Err() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.err
}

// Wait blocks until the run ended or timeout elapsed, and reports whether it ended.
func (rc *RequestContext) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-rc.done:
		return true
	case <-timer.C:
		return false
	}
}

// claim marks the context as used by a run. A context runs at most once.
func (rc *RequestContext) claim() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.started {
		return false
	}
	rc.started = true
	return true
}

func (rc *RequestContext) finish(outcome Outcome, err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.outcome != OutcomePending {
		return
	}
	rc.outcome = outcome
	rc.err = err
	close(rc.done)
}

func (rc *RequestContext) logAttrs() []any {
	return []any{
		"request", rc.ID.String(),
		"current_track", string(rc.CurrentTrack),
		"requested_track", string(rc.RequestedTrack),
	}
}
