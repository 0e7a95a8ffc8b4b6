// Package service provides the delegate layer of the gotune playback core.
//
// Services turn user intents (play, stop, enqueue, scan) into request contexts,
// chain runs and load sessions.
package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/metadata"
	"github.com/tejashwikalptaru/gotune-core/internal/metrics"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
	"github.com/tejashwikalptaru/gotune-core/internal/track"
)

// QueueName is the owning-list name of the play queue.
const QueueName = "queue"

// QueueService manages the play queue.
// It is the owning list for queue imports and tells the start chain what comes next.
// All operations are thread-safe.
type QueueService struct {
	// Dependencies (injected)
	logger   *slog.Logger
	bus      ports.EventBus
	store    *track.Store
	registry *metadata.Registry
	pools    *metadata.Pools
	metrics  *metrics.Recorder

	list *trackList

	// loadMu serializes load sessions into the queue
	loadMu sync.Mutex

	// State
	mu              sync.RWMutex
	currentIndex    int
	active          bool
	autoplayPending bool
	autoplay        func(index int)
}

// NewQueueService creates a new queue service.
func NewQueueService(
	logger *slog.Logger,
	bus ports.EventBus,
	store *track.Store,
	registry *metadata.Registry,
	pools *metadata.Pools,
	rec *metrics.Recorder,
) *QueueService {
	logger = logger.With(slog.String("service", "QueueService"))
	logger.Debug("queue service initialized")

	return &QueueService{
		logger:       logger,
		bus:          bus,
		store:        store,
		registry:     registry,
		pools:        pools,
		metrics:      rec,
		list:         newTrackList(QueueName, store, bus),
		currentIndex: -1,
	}
}

// OnAutoplay sets the function called with the index of the first track an
// autoplay enqueue loads.
func (s *QueueService) OnAutoplay(fn func(index int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoplay = fn
}

// Enqueue loads files at the end of the queue on the medium priority pool.
// With autoplay the first track that loads starts playing.
func (s *QueueService) Enqueue(ctx context.Context, files []string, autoplay bool) error {
	return s.load(ctx, "enqueue", files, -1, autoplay)
}

// InsertNext loads files right after the current track.
func (s *QueueService) InsertNext(ctx context.Context, files []string) error {
	s.mu.RLock()
	at := s.currentIndex + 1
	s.mu.RUnlock()

	return s.load(ctx, "insert-next", files, at, false)
}

func (s *QueueService) load(ctx context.Context, op string, files []string, at int, autoplay bool) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	s.autoplayPending = autoplay
	s.mu.Unlock()

	session := metadata.NewLoadSession(metadata.LoadSessionConfig{
		List:           s,
		Store:          s.store,
		Registry:       s.registry,
		Pools:          s.pools,
		Priority:       domain.PriorityMedium,
		Files:          files,
		InsertionIndex: at,
		Bus:            s.bus,
		Logger:         s.logger,
		Metrics:        s.metrics,
	})

	if err := session.Run(ctx); err != nil {
		return domain.NewServiceError("QueueService", op, "queue load interrupted", err)
	}
	return nil
}

// Name implements ports.TrackList.
func (s *QueueService) Name() string {
	return QueueName
}

// FindTrack implements ports.TrackList.
func (s *QueueService) FindTrack(id domain.TrackID) (domain.Track, bool) {
	return s.list.find(id)
}

// PreTrackLoad implements ports.TrackList.
func (s *QueueService) PreTrackLoad() {
	s.logger.Debug("queue load started")
}

// AcceptBatch implements ports.TrackList.
// Tracks inserted before the current one shift the current index.
func (s *QueueService) AcceptBatch(batch domain.ReadBatch) []int {
	indices := s.list.accept(batch)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, index := range indices {
		if s.currentIndex >= 0 && index <= s.currentIndex {
			s.currentIndex++
		}
	}
	return indices
}

// PostBatchLoad implements ports.TrackList.
func (s *QueueService) PostBatchLoad(indices []int) {
	if len(indices) == 0 {
		return
	}
	s.publishChanged()
}

// FirstTrackLoaded implements ports.TrackList.
func (s *QueueService) FirstTrackLoaded(index int) {
	s.mu.Lock()
	fn := s.autoplay
	pending := s.autoplayPending
	s.autoplayPending = false
	s.mu.Unlock()

	if !pending || fn == nil {
		return
	}

	s.logger.Debug("autoplaying first loaded track", slog.Int("index", index))
	fn(index)
}

// PostTrackLoad implements ports.TrackList.
func (s *QueueService) PostTrackLoad() {
	s.mu.Lock()
	s.autoplayPending = false
	s.mu.Unlock()

	s.logger.Debug("queue load finished", slog.Int("length", s.list.length()))
}

// IndexOfTrack implements ports.TrackList.
func (s *QueueService) IndexOfTrack(id domain.TrackID) int {
	return s.list.indexOf(id)
}

// Stop implements ports.PlayQueue. The queue stays as it is but stops advancing.
func (s *QueueService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		s.logger.Debug("queue playback stopped")
	}
	s.active = false
}

// Subsequent implements ports.PlayQueue.
func (s *QueueService) Subsequent(id domain.TrackID) (domain.TrackID, bool) {
	index := s.list.indexOf(id)
	if index < 0 {
		return domain.NoTrack, false
	}

	next, err := s.list.at(index + 1)
	if err != nil {
		return domain.NoTrack, false
	}
	return next, true
}

// SetCurrent marks id as the playing entry and resumes queue playback.
// It reports false when id is not queued.
func (s *QueueService) SetCurrent(id domain.TrackID) bool {
	index := s.list.indexOf(id)
	if index < 0 {
		return false
	}

	s.mu.Lock()
	s.currentIndex = index
	s.active = true
	s.mu.Unlock()

	s.publishChanged()
	return true
}

// TrackAt returns the id queued at index.
func (s *QueueService) TrackAt(index int) (domain.TrackID, error) {
	id, err := s.list.at(index)
	if err != nil {
		return domain.NoTrack, domain.NewServiceError("QueueService", "track-at", "index out of range", err)
	}
	return id, nil
}

// CurrentIndex returns the index of the playing entry, -1 if none.
func (s *QueueService) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

// IsActive reports whether the queue advances after the current track.
func (s *QueueService) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Tracks returns a snapshot of the queued tracks in order.
func (s *QueueService) Tracks() []domain.Track {
	return s.list.tracks()
}

// Len returns the queue length.
func (s *QueueService) Len() int {
	return s.list.length()
}

// LoadErrors returns the tracks that failed to load, keyed by id.
func (s *QueueService) LoadErrors() map[domain.TrackID]error {
	return s.list.errors()
}

// Remove removes the entry at index.
func (s *QueueService) Remove(index int) error {
	s.mu.Lock()
	if _, err := s.list.remove(index); err != nil {
		s.mu.Unlock()
		return domain.NewServiceError("QueueService", "remove", "index out of range", err)
	}

	switch {
	case index < s.currentIndex:
		s.currentIndex--
	case index == s.currentIndex:
		s.currentIndex = -1
	}
	s.mu.Unlock()

	s.publishChanged()
	return nil
}

// Clear empties the queue and stops it advancing.
func (s *QueueService) Clear() {
	s.mu.Lock()
	s.list.clear()
	s.currentIndex = -1
	s.active = false
	s.mu.Unlock()

	s.logger.Debug("queue cleared")
	s.publishChanged()
}

func (s *QueueService) publishChanged() {
	s.mu.RLock()
	current := s.currentIndex
	s.mu.RUnlock()

	s.bus.Publish(domain.NewQueueChangedEvent(s.list.length(), current))
}

// Verify that QueueService implements the owning-list and play-queue ports
var (
	_ ports.TrackList = (*QueueService)(nil)
	_ ports.PlayQueue = (*QueueService)(nil)
)
