package mock

import (
	"sync"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

// Preparer is a TrackPreparer that accepts every track unless told otherwise.
type Preparer struct {
	mu       sync.Mutex
	failures map[domain.TrackID]error
	prepared []domain.TrackID
}

// NewPreparer creates a preparer that accepts every track.
func NewPreparer() *Preparer {
	return &Preparer{failures: make(map[domain.TrackID]error)}
}

// SetFailure makes Prepare of id return err (nil to accept again).
func (p *Preparer) SetFailure(id domain.TrackID, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		delete(p.failures, id)
		return
	}
	p.failures[id] = err
}

// Prepare implements ports.TrackPreparer.
func (p *Preparer) Prepare(track domain.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prepared = append(p.prepared, track.ID)
	return p.failures[track.ID]
}

// Prepared returns the ids passed to Prepare, in call order.
func (p *Preparer) Prepared() []domain.TrackID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.TrackID(nil), p.prepared...)
}

var _ ports.TrackPreparer = (*Preparer)(nil)
