// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the gotune playback core.
package domain

import (
	"path/filepath"
	"time"
)

// TrackID identifies a track by its file location.
// It is the cleaned absolute path of the audio file, so two references to the
// same file always resolve to the same track.
type TrackID string

// NoTrack is the zero TrackID and means "no track".
const NoTrack TrackID = ""

// NewTrackID builds the canonical TrackID for a file path.
func NewTrackID(path string) TrackID {
	if path == "" {
		return NoTrack
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return TrackID(filepath.Clean(path))
}

// IsZero reports whether the id refers to no track.
func (id TrackID) IsZero() bool {
	return id == NoTrack
}

// Path returns the file path the id was built from.
func (id TrackID) Path() string {
	return string(id)
}

// Track is the unit of playable media.
//
// Tracks live in a track.Store and are addressed by ID. Values of this type are
// snapshots: mutate a track through the store so every holder observes the change.
type Track struct {
	// ID is the canonical file identity
	ID TrackID

	// Path is the absolute path to the audio file on the filesystem
	Path string

	// Metadata is the primary metadata, nil until it has been read
	Metadata *Metadata

	// Duration is the computed length of the track
	Duration time.Duration

	// ValidationError is set when the file cannot be read or decoded
	ValidationError error
}

// HasMetadata reports whether primary metadata has been loaded.
func (t Track) HasMetadata() bool {
	return t.Metadata != nil
}

// IsValid reports whether the track may be played.
func (t Track) IsValid() bool {
	return t.ValidationError == nil
}

// DisplayName returns the title when known, falling back to the file name.
func (t Track) DisplayName() string {
	if t.Metadata != nil && t.Metadata.Title != "" {
		return t.Metadata.Title
	}
	return filepath.Base(t.Path)
}

// Metadata is the primary metadata read from an audio file.
// It is the unit cached by the metadata registry and persisted in its snapshot.
type Metadata struct {
	Title       string        `json:"title,omitempty"`
	Artist      string        `json:"artist,omitempty"`
	Album       string        `json:"album,omitempty"`
	AlbumArtist string        `json:"album_artist,omitempty"`
	Genre       string        `json:"genre,omitempty"`
	Composer    string        `json:"composer,omitempty"`
	Year        int           `json:"year,omitempty"`
	TrackNumber int           `json:"track_number,omitempty"`
	DiscNumber  int           `json:"disc_number,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`

	// Format is the lower-case file extension without the dot (mp3, flac, ...)
	Format string `json:"format,omitempty"`

	// SampleRate and BitDepth are only known for formats with a native stream header reader
	SampleRate int `json:"sample_rate,omitempty"`
	BitDepth   int `json:"bit_depth,omitempty"`
}

// PlaybackState represents the state of the player.
type PlaybackState int

const (
	// StateStopped indicates nothing is playing
	StateStopped PlaybackState = iota

	// StatePlaying indicates playback is active
	StatePlaying

	// StatePaused indicates playback is paused
	StatePaused

	// StateTranscoding indicates a non-native file is being converted before playback
	StateTranscoding

	// StateWaiting indicates the player is in a gap before the next track
	StateWaiting
)

// String returns a human-readable representation of the playback state.
func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateTranscoding:
		return "transcoding"
	case StateWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// IsActive reports whether a track is loaded in the engine (playing or paused).
func (s PlaybackState) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

// ReadResult is the outcome of reading one file in a load session.
type ReadResult int

const (
	// ReadExisting means the owning list already held the track
	ReadExisting ReadResult = iota

	// ReadAdded means the track is new to the owning list
	ReadAdded

	// ReadError means the file failed validation or metadata reading
	ReadError
)

// String returns a human-readable representation of the read result.
func (r ReadResult) String() string {
	switch r {
	case ReadExisting:
		return "existing"
	case ReadAdded:
		return "added"
	case ReadError:
		return "error"
	default:
		return "unknown"
	}
}

// ReadRecord pairs a track with the result of reading it in a load session.
type ReadRecord struct {
	Track  TrackID
	Result ReadResult
}

// ReadBatch is a batch of records handed to an owning list.
type ReadBatch struct {
	Records []ReadRecord

	// InsertionIndex is where the owning list should insert new tracks, -1 to append
	InsertionIndex int
}

// LoadPriority selects one of the metadata worker pools.
type LoadPriority int

const (
	// PriorityHigh is used for interactive requests (the user is waiting)
	PriorityHigh LoadPriority = iota

	// PriorityMedium is used for queue and playlist imports
	PriorityMedium

	// PriorityLow is used for background work such as library scans and pre-fetching
	PriorityLow
)

// String returns a human-readable representation of the priority.
func (p LoadPriority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// PlaybackProfile remembers where a track was left.
type PlaybackProfile struct {
	Track    TrackID
	Position time.Duration
	SavedAt  time.Time
}

// ResumePosition returns the position to record when leaving a track.
// A track that reached its end resumes from the start rather than from its last frame.
func ResumePosition(seek, duration time.Duration) time.Duration {
	if seek < 0 {
		return 0
	}
	if duration > 0 && seek >= duration {
		return 0
	}
	return seek
}

// PlayerStatus is a snapshot of the player for presenters.
type PlayerStatus struct {
	State        PlaybackState
	Track        *Track
	Position     time.Duration
	QueueIndex   int
	QueueLength  int
	PendingCount int
}

// ScanProgress represents the progress of a music library scan operation.
type ScanProgress struct {
	// Folder is the folder being scanned
	Folder string

	// FilesFound is the number of supported files discovered
	FilesFound int

	// TracksLoaded is the number of tracks handed to the library so far
	TracksLoaded int

	// Errors is the number of files that could not be read
	Errors int
}

// Percentage returns the completion percentage (0-100), or -1 if nothing was found.
func (p ScanProgress) Percentage() float64 {
	if p.FilesFound <= 0 {
		return -1
	}
	return float64(p.TracksLoaded+p.Errors) / float64(p.FilesFound) * 100.0
}
