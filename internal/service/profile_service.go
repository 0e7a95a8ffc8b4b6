package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

// ProfileService keeps playback profiles and last positions in memory.
// All operations are thread-safe via sync.RWMutex.
type ProfileService struct {
	logger *slog.Logger

	// State
	rememberPositions bool
	profiles          map[domain.TrackID]domain.PlaybackProfile
	lastPositions     map[domain.TrackID]time.Duration

	// Concurrency control
	mu sync.RWMutex
}

// NewProfileService creates a profile service. With rememberPositions off,
// saved profiles are dropped and tracks always start from the beginning.
func NewProfileService(logger *slog.Logger, rememberPositions bool) *ProfileService {
	logger = logger.With(slog.String("service", "ProfileService"))
	logger.Debug("profile service initialized", slog.Bool("remember_positions", rememberPositions))

	return &ProfileService{
		logger:            logger,
		rememberPositions: rememberPositions,
		profiles:          make(map[domain.TrackID]domain.PlaybackProfile),
		lastPositions:     make(map[domain.TrackID]time.Duration),
	}
}

// Save implements ports.PlaybackProfiles.
func (s *ProfileService) Save(profile domain.PlaybackProfile) {
	if profile.Track.IsZero() {
		return
	}
	if profile.SavedAt.IsZero() {
		profile.SavedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.rememberPositions {
		return
	}
	s.profiles[profile.Track] = profile

	s.logger.Debug("profile saved",
		slog.String("track", profile.Track.Path()),
		slog.Duration("position", profile.Position))
}

// Get implements ports.PlaybackProfiles.
func (s *ProfileService) Get(id domain.TrackID) (domain.PlaybackProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.rememberPositions {
		return domain.PlaybackProfile{}, false
	}
	profile, ok := s.profiles[id]
	return profile, ok
}

// MarkLastPosition implements ports.PlaybackProfiles.
func (s *ProfileService) MarkLastPosition(id domain.TrackID, position time.Duration) {
	if id.IsZero() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPositions[id] = position
}

// LastPosition implements ports.PlaybackProfiles.
func (s *ProfileService) LastPosition(id domain.TrackID) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, ok := s.lastPositions[id]
	return position, ok
}

// SetRememberPositions turns profile recall on or off. Turning it off forgets every profile.
func (s *ProfileService) SetRememberPositions(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rememberPositions = enabled
	if !enabled {
		clear(s.profiles)
	}
}

// RemembersPositions reports whether profiles are recalled.
func (s *ProfileService) RemembersPositions() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rememberPositions
}

// Forget drops the profile of one track.
func (s *ProfileService) Forget(id domain.TrackID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
}

// Len returns the number of saved profiles.
func (s *ProfileService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Verify that ProfileService implements ports.PlaybackProfiles
var _ ports.PlaybackProfiles = (*ProfileService)(nil)
