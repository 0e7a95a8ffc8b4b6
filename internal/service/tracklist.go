package service

import (
	"slices"
	"sync"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
	"github.com/tejashwikalptaru/gotune-core/internal/track"
)

// trackList is the ordered, id-based storage shared by the queue and the library.
// Tracks themselves live in the store; the list only holds their ids.
type trackList struct {
	name  string
	store *track.Store
	bus   ports.EventBus

	mu         sync.RWMutex
	ids        []domain.TrackID
	loadErrors map[domain.TrackID]error
}

func newTrackList(name string, store *track.Store, bus ports.EventBus) *trackList {
	return &trackList{
		name:       name,
		store:      store,
		bus:        bus,
		loadErrors: make(map[domain.TrackID]error),
	}
}

func (l *trackList) find(id domain.TrackID) (domain.Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !slices.Contains(l.ids, id) {
		return domain.Track{}, false
	}
	return l.store.Get(id)
}

// accept inserts the new, readable tracks of a batch and returns their indices.
// Errored records are kept as load errors and reported instead of inserted.
func (l *trackList) accept(batch domain.ReadBatch) []int {
	l.mu.Lock()

	at := batch.InsertionIndex
	if at < 0 || at > len(l.ids) {
		at = len(l.ids)
	}

	var (
		indices []int
		failed  []domain.Track
	)
	for _, rec := range batch.Records {
		switch rec.Result {
		case domain.ReadExisting:
			continue
		case domain.ReadError:
			t := l.store.Lookup(rec.Track)
			l.loadErrors[rec.Track] = t.ValidationError
			failed = append(failed, t)
		case domain.ReadAdded:
			if slices.Contains(l.ids, rec.Track) {
				continue
			}
			delete(l.loadErrors, rec.Track)
			l.ids = slices.Insert(l.ids, at, rec.Track)
			indices = append(indices, at)
			at++
		}
	}
	l.mu.Unlock()

	for _, t := range failed {
		l.bus.Publish(domain.NewTrackLoadFailedEvent(l.name, t, t.ValidationError))
	}

	return indices
}

func (l *trackList) indexOf(id domain.TrackID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Index(l.ids, id)
}

func (l *trackList) at(index int) (domain.TrackID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.ids) {
		return domain.NoTrack, domain.ErrInvalidIndex
	}
	return l.ids[index], nil
}

func (l *trackList) tracks() []domain.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Track, len(l.ids))
	for i, id := range l.ids {
		out[i] = l.store.Lookup(id)
	}
	return out
}

func (l *trackList) length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

func (l *trackList) remove(index int) (domain.TrackID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.ids) {
		return domain.NoTrack, domain.ErrInvalidIndex
	}
	id := l.ids[index]
	l.ids = slices.Delete(l.ids, index, index+1)
	return id, nil
}

func (l *trackList) removeID(id domain.TrackID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	index := slices.Index(l.ids, id)
	if index < 0 {
		return false
	}
	l.ids = slices.Delete(l.ids, index, index+1)
	return true
}

func (l *trackList) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ids = nil
	l.loadErrors = make(map[domain.TrackID]error)
}

func (l *trackList) errors() map[domain.TrackID]error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[domain.TrackID]error, len(l.loadErrors))
	for id, err := range l.loadErrors {
		out[id] = err
	}
	return out
}
