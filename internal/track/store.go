// Package track holds the process-wide arena of tracks.
//
// Every list, queue and playback request refers to a track by its domain.TrackID.
// The Store owns the only mutable copy, so a metadata update made by a load session
// is seen by every holder the next time it resolves the id.
package track

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

// Store is a thread-safe arena of tracks keyed by file identity.
// Tracks are never removed; the set only grows for the life of the process.
type Store struct {
	mu     sync.RWMutex
	tracks map[domain.TrackID]*domain.Track
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tracks: make(map[domain.TrackID]*domain.Track),
	}
}

// Acquire returns the track for path, creating it on first reference.
// created reports whether this call created it.
func (s *Store) Acquire(path string) (t domain.Track, created bool) {
	id := domain.NewTrackID(path)

	s.mu.RLock()
	existing, ok := s.tracks[id]
	if ok {
		t = snapshot(existing)
	}
	s.mu.RUnlock()
	if ok {
		return t, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Lost a race with another creator
	if existing, ok := s.tracks[id]; ok {
		return snapshot(existing), false
	}

	record := &domain.Track{
		ID:   id,
		Path: id.Path(),
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(record.Path)), "."); ext == "" {
		record.ValidationError = domain.ErrUnsupportedFormat
	}
	s.tracks[id] = record

	return snapshot(record), true
}

// Get returns a snapshot of the track.
func (s *Store) Get(id domain.TrackID) (domain.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tracks[id]
	if !ok {
		return domain.Track{}, false
	}
	return snapshot(t), true
}

// Lookup returns a snapshot, or the zero Track when id is empty or unknown.
func (s *Store) Lookup(id domain.TrackID) domain.Track {
	t, _ := s.Get(id)
	return t
}

// Update applies fn to the stored track under the write lock and returns the result.
// fn must not call back into the store.
func (s *Store) Update(id domain.TrackID, fn func(t *domain.Track)) (domain.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tracks[id]
	if !ok {
		return domain.Track{}, domain.ErrTrackNotFound
	}
	fn(t)

	// Identity is fixed
	t.ID = id
	t.Path = id.Path()

	return snapshot(t), nil
}

// ApplyMetadata stores metadata on the track and clears any earlier validation error.
func (s *Store) ApplyMetadata(id domain.TrackID, md domain.Metadata) (domain.Track, error) {
	return s.Update(id, func(t *domain.Track) {
		m := md
		t.Metadata = &m
		t.ValidationError = nil
		if md.Duration > 0 {
			t.Duration = md.Duration
		}
	})
}

// Invalidate records why the track cannot be played.
func (s *Store) Invalidate(id domain.TrackID, err error) (domain.Track, error) {
	return s.Update(id, func(t *domain.Track) {
		t.ValidationError = err
	})
}

// Len returns the number of tracks in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// snapshot copies a stored track, including its metadata, so callers cannot alias store state.
func snapshot(t *domain.Track) domain.Track {
	c := *t
	if t.Metadata != nil {
		md := *t.Metadata
		c.Metadata = &md
	}
	return c
}
