package ports

import (
	"time"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

// AudioEngine is the output side of the player.
// The decoder and device internals live behind it; the playback chain only
// commands it to start and stop.
//
// Implementations must be thread-safe as they may be called from multiple goroutines.
type AudioEngine interface {
	// Start begins producing audio for the track from the given position.
	// Any track already sounding is replaced.
	Start(track domain.Track, from time.Duration) error

	// Stop halts output. Stopping an idle engine is not an error.
	Stop() error

	// Pause suspends output, keeping the position.
	Pause() error

	// Resume continues output after Pause.
	Resume() error

	// Seek moves the playback position of the current track.
	Seek(position time.Duration) error

	// Position returns the current playback position, zero when idle.
	Position() time.Duration

	// State returns what the engine is doing.
	State() domain.PlaybackState
}

// TrackPreparer checks that a track can be decoded before the engine is asked to play it.
// Native formats are checked directly; non-native ones may need a transcoder.
type TrackPreparer interface {
	// Prepare returns nil when the track is ready for the engine.
	Prepare(track domain.Track) error
}
