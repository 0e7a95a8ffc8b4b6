// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrTrackNotFound is returned when a requested track cannot be found.
	ErrTrackNotFound = errors.New("track not found")

	// ErrNoTrackRequested is returned when a start request carries no target track.
	ErrNoTrackRequested = errors.New("no track requested")

	// ErrEndOfQueue is returned when trying to navigate past the end of the queue.
	ErrEndOfQueue = errors.New("end of queue reached")

	// ErrStartOfQueue is returned when trying to navigate before the start of the queue.
	ErrStartOfQueue = errors.New("start of queue reached")

	// ErrInvalidIndex is returned when a queue index is out of bounds.
	ErrInvalidIndex = errors.New("invalid queue index")

	// ErrInvalidPosition is returned when seeking to an invalid position.
	ErrInvalidPosition = errors.New("invalid playback position")

	// ErrUnsupportedFormat is returned when an audio file format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileNotFound is returned when a file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidFilePath is returned when a file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrNoMetadata is returned when a file carries no readable primary metadata.
	ErrNoMetadata = errors.New("no metadata available")

	// ErrScanCancelled is returned when a library scan is canceled.
	ErrScanCancelled = errors.New("scan cancelled")

	// ErrScanInProgress is returned when a second scan is started while one is running.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrNotPlaying is returned by operations that need an active track.
	ErrNotPlaying = errors.New("nothing is playing")
)

// AudioEngineError represents an error from the audio engine.
// This wraps low-level audio library errors with additional context.
type AudioEngineError struct {
	Op      string // Operation that failed (e.g., "start", "stop")
	Path    string // File path (if applicable)
	Code    int    // Error code from an underlying library
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *AudioEngineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("audio engine %s failed for '%s': %s (code: %d)", e.Op, e.Path, e.Message, e.Code)
	}
	return fmt.Sprintf("audio engine %s failed: %s (code: %d)", e.Op, e.Message, e.Code)
}

// Unwrap returns the underlying error.
func (e *AudioEngineError) Unwrap() error {
	return e.Err
}

// NewAudioEngineError creates a new AudioEngineError.
func NewAudioEngineError(op, path string, code int, message string, err error) *AudioEngineError {
	return &AudioEngineError{
		Op:      op,
		Path:    path,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// PlaybackError is the user-displayable failure of a play request.
// It is carried by the track-not-played notification.
type PlaybackError struct {
	Track   TrackID // Track that could not be played
	Op      string  // Step that failed (e.g., "prepare", "start")
	Message string  // Short description suitable for display
	Err     error   // Underlying error
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot play '%s' (%s): %s: %v", e.Track, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("cannot play '%s' (%s): %s", e.Track, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// NewPlaybackError creates a new PlaybackError.
func NewPlaybackError(track TrackID, op, message string, err error) *PlaybackError {
	return &PlaybackError{
		Track:   track,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "save", "load")
	Type    string // Repository type (e.g., "metadata-cache")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "PlaybackService", "QueueService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
