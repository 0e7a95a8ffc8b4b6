// Package domain defines events for the event-driven architecture.
// Events decouple the playback core from whoever presents its state.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback transition events
	EventPreTrackChange EventType = "track.pre_change"
	EventTrackChanged   EventType = "track.changed"
	EventTrackNotPlayed EventType = "track.not_played"
	EventGapStarted     EventType = "playback.gap_started"
	EventPauseToggled   EventType = "playback.pause_toggled"
	EventTrackSeeked    EventType = "playback.seeked"

	// Owning list events
	EventQueueChanged     EventType = "queue.changed"
	EventTrackBatchLoaded EventType = "tracks.batch_loaded"
	EventTracksLoaded     EventType = "tracks.loaded"
	EventTrackLoadFailed  EventType = "tracks.load_failed"

	// Metadata events
	EventMetadataUnreadable EventType = "metadata.unreadable"

	// Library scanning events
	EventScanStarted   EventType = "scan.started"
	EventScanProgress  EventType = "scan.progress"
	EventScanCompleted EventType = "scan.completed"
	EventScanCancelled EventType = "scan.cancelled"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// PreTrackChangeEvent is published before a start request touches any player state.
// Previous and Requested are zero values when absent.
type PreTrackChangeEvent struct {
	baseEvent
	Previous  Track
	Requested Track
	ByUser    bool
}

// Type returns the event type.
func (e PreTrackChangeEvent) Type() EventType {
	return EventPreTrackChange
}

// NewPreTrackChangeEvent creates a new PreTrackChangeEvent.
func NewPreTrackChangeEvent(previous, requested Track, byUser bool) PreTrackChangeEvent {
	return PreTrackChangeEvent{
		baseEvent: newBaseEvent(),
		Previous:  previous,
		Requested: requested,
		ByUser:    byUser,
	}
}

// TrackChangedEvent is published when a transition completes and is still the current request.
// Current is the zero Track after a stop.
type TrackChangedEvent struct {
	baseEvent
	Previous Track
	Current  Track
	State    PlaybackState
	Position time.Duration
}

// Type returns the event type.
func (e TrackChangedEvent) Type() EventType {
	return EventTrackChanged
}

// NewTrackChangedEvent creates a new TrackChangedEvent.
func NewTrackChangedEvent(previous, current Track, state PlaybackState, position time.Duration) TrackChangedEvent {
	return TrackChangedEvent{
		baseEvent: newBaseEvent(),
		Previous:  previous,
		Current:   current,
		State:     state,
		Position:  position,
	}
}

// TrackNotPlayedEvent is published once when a start request fails.
type TrackNotPlayedEvent struct {
	baseEvent
	Previous Track
	Failed   Track
	Error    error
}

// Type returns the event type.
func (e TrackNotPlayedEvent) Type() EventType {
	return EventTrackNotPlayed
}

// NewTrackNotPlayedEvent creates a new TrackNotPlayedEvent.
func NewTrackNotPlayedEvent(previous, failed Track, err error) TrackNotPlayedEvent {
	return TrackNotPlayedEvent{
		baseEvent: newBaseEvent(),
		Previous:  previous,
		Failed:    failed,
		Error:     err,
	}
}

// GapStartedEvent is published when the player waits before starting the next track.
type GapStartedEvent struct {
	baseEvent
	GapID    string
	Previous Track
	Next     Track
	Delay    time.Duration
}

// Type returns the event type.
func (e GapStartedEvent) Type() EventType {
	return EventGapStarted
}

// NewGapStartedEvent creates a new GapStartedEvent.
func NewGapStartedEvent(gapID string, previous, next Track, delay time.Duration) GapStartedEvent {
	return GapStartedEvent{
		baseEvent: newBaseEvent(),
		GapID:     gapID,
		Previous:  previous,
		Next:      next,
		Delay:     delay,
	}
}

// PauseToggledEvent is published when playback is paused or resumed.
type PauseToggledEvent struct {
	baseEvent
	Track    Track
	Paused   bool
	Position time.Duration
}

// Type returns the event type.
func (e PauseToggledEvent) Type() EventType {
	return EventPauseToggled
}

// NewPauseToggledEvent creates a new PauseToggledEvent.
func NewPauseToggledEvent(track Track, paused bool, position time.Duration) PauseToggledEvent {
	return PauseToggledEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Paused:    paused,
		Position:  position,
	}
}

// TrackSeekedEvent is published after a seek.
type TrackSeekedEvent struct {
	baseEvent
	Track    Track
	Position time.Duration
}

// Type returns the event type.
func (e TrackSeekedEvent) Type() EventType {
	return EventTrackSeeked
}

// NewTrackSeekedEvent creates a new TrackSeekedEvent.
func NewTrackSeekedEvent(track Track, position time.Duration) TrackSeekedEvent {
	return TrackSeekedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Position:  position,
	}
}

// QueueChangedEvent is published when the play queue changes.
type QueueChangedEvent struct {
	baseEvent
	Length       int
	CurrentIndex int
}

// Type returns the event type.
func (e QueueChangedEvent) Type() EventType {
	return EventQueueChanged
}

// NewQueueChangedEvent creates a new QueueChangedEvent.
func NewQueueChangedEvent(length, currentIndex int) QueueChangedEvent {
	return QueueChangedEvent{
		baseEvent:    newBaseEvent(),
		Length:       length,
		CurrentIndex: currentIndex,
	}
}

// TrackBatchLoadedEvent is published after a load session hands a batch to an owning list.
type TrackBatchLoadedEvent struct {
	baseEvent
	List    string
	Indices []int
}

// Type returns the event type.
func (e TrackBatchLoadedEvent) Type() EventType {
	return EventTrackBatchLoaded
}

// NewTrackBatchLoadedEvent creates a new TrackBatchLoadedEvent.
func NewTrackBatchLoadedEvent(list string, indices []int) TrackBatchLoadedEvent {
	return TrackBatchLoadedEvent{
		baseEvent: newBaseEvent(),
		List:      list,
		Indices:   indices,
	}
}

// TracksLoadedEvent is published when a load session has read all its files.
type TracksLoadedEvent struct {
	baseEvent
	List   string
	Files  int
	Loaded int
	Errors int
}

// Type returns the event type.
func (e TracksLoadedEvent) Type() EventType {
	return EventTracksLoaded
}

// NewTracksLoadedEvent creates a new TracksLoadedEvent.
func NewTracksLoadedEvent(list string, files, loaded, errors int) TracksLoadedEvent {
	return TracksLoadedEvent{
		baseEvent: newBaseEvent(),
		List:      list,
		Files:     files,
		Loaded:    loaded,
		Errors:    errors,
	}
}

// TrackLoadFailedEvent is published by an owning list for each errored record it receives.
type TrackLoadFailedEvent struct {
	baseEvent
	List  string
	Track Track
	Error error
}

// Type returns the event type.
func (e TrackLoadFailedEvent) Type() EventType {
	return EventTrackLoadFailed
}

// NewTrackLoadFailedEvent creates a new TrackLoadFailedEvent.
func NewTrackLoadFailedEvent(list string, track Track, err error) TrackLoadFailedEvent {
	return TrackLoadFailedEvent{
		baseEvent: newBaseEvent(),
		List:      list,
		Track:     track,
		Error:     err,
	}
}

// MetadataUnreadableEvent is published once a file has failed metadata reading too many times.
type MetadataUnreadableEvent struct {
	baseEvent
	Path     string
	Failures int
	Error    error
}

// Type returns the event type.
func (e MetadataUnreadableEvent) Type() EventType {
	return EventMetadataUnreadable
}

// NewMetadataUnreadableEvent creates a new MetadataUnreadableEvent.
func NewMetadataUnreadableEvent(path string, failures int, err error) MetadataUnreadableEvent {
	return MetadataUnreadableEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
		Failures:  failures,
		Error:     err,
	}
}

// ScanStartedEvent is published when a library scan starts.
type ScanStartedEvent struct {
	baseEvent
	Folder string
}

// Type returns the event type.
func (e ScanStartedEvent) Type() EventType {
	return EventScanStarted
}

// NewScanStartedEvent creates a new ScanStartedEvent.
func NewScanStartedEvent(folder string) ScanStartedEvent {
	return ScanStartedEvent{
		baseEvent: newBaseEvent(),
		Folder:    folder,
	}
}

// ScanProgressEvent is published as scan batches land in the library.
type ScanProgressEvent struct {
	baseEvent
	Progress ScanProgress
}

// Type returns the event type.
func (e ScanProgressEvent) Type() EventType {
	return EventScanProgress
}

// NewScanProgressEvent creates a new ScanProgressEvent.
func NewScanProgressEvent(progress ScanProgress) ScanProgressEvent {
	return ScanProgressEvent{
		baseEvent: newBaseEvent(),
		Progress:  progress,
	}
}

// ScanCompletedEvent is published when a library scan finishes.
type ScanCompletedEvent struct {
	baseEvent
	Progress ScanProgress
}

// Type returns the event type.
func (e ScanCompletedEvent) Type() EventType {
	return EventScanCompleted
}

// NewScanCompletedEvent creates a new ScanCompletedEvent.
func NewScanCompletedEvent(progress ScanProgress) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent: newBaseEvent(),
		Progress:  progress,
	}
}

// ScanCancelledEvent is published when a library scan is canceled.
type ScanCancelledEvent struct {
	baseEvent
	Reason string
}

// Type returns the event type.
func (e ScanCancelledEvent) Type() EventType {
	return EventScanCancelled
}

// NewScanCancelledEvent creates a new ScanCancelledEvent.
func NewScanCancelledEvent(reason string) ScanCancelledEvent {
	return ScanCancelledEvent{
		baseEvent: newBaseEvent(),
		Reason:    reason,
	}
}
