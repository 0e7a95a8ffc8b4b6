package ports

import (
	"time"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

// TrackList is a list that owns tracks read by a load session
// (the play queue, the library, a playlist).
//
// A load session calls PreTrackLoad once, then AcceptBatch followed by PostBatchLoad
// for every batch in submission order, FirstTrackLoaded at most once, and PostTrackLoad
// once at the end. All calls come from the goroutine running the session.
type TrackList interface {
	// Name identifies the list in logs and events.
	Name() string

	// FindTrack returns the track when the list already holds it.
	FindTrack(id domain.TrackID) (domain.Track, bool)

	// PreTrackLoad is called before the first file is read.
	PreTrackLoad()

	// AcceptBatch takes a batch of records and returns the list indices it placed them at.
	AcceptBatch(batch domain.ReadBatch) []int

	// PostBatchLoad is called with the indices returned by AcceptBatch.
	PostBatchLoad(indices []int)

	// FirstTrackLoaded is called for the first non-errored record of the session.
	FirstTrackLoaded(index int)

	// PostTrackLoad is called after the last batch.
	PostTrackLoad()

	// IndexOfTrack returns the index of the track in the list, or -1.
	IndexOfTrack(id domain.TrackID) int
}

// PlayQueue is the part of the play queue the playback chain needs.
type PlayQueue interface {
	// Stop ends queue playback so no automatic advance happens.
	Stop()

	// Subsequent returns the track expected to play after id.
	Subsequent(id domain.TrackID) (domain.TrackID, bool)
}

// PlaybackProfiles remembers per-track playback positions.
type PlaybackProfiles interface {
	// Save records a profile for the track, if profiles are enabled.
	Save(profile domain.PlaybackProfile)

	// Get returns the saved profile for the track.
	Get(id domain.TrackID) (domain.PlaybackProfile, bool)

	// MarkLastPosition records where playback of the track stopped.
	MarkLastPosition(id domain.TrackID, position time.Duration)

	// LastPosition returns the last recorded stop position for the track.
	LastPosition(id domain.TrackID) (time.Duration, bool)
}
