package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/metadata"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
	"github.com/tejashwikalptaru/gotune-core/internal/track"
)

// Action names, also used as metric labels.
const (
	ActionSavePlaybackProfile        = "save-playback-profile"
	ActionHaltPlayback               = "halt-playback"
	ActionAudioFilePreparation       = "audio-file-preparation"
	ActionApplyPlaybackProfile       = "apply-playback-profile"
	ActionStartPlayback              = "start-playback"
	ActionPredictiveTrackPreparation = "predictive-track-preparation"
	ActionMarkLastPlaybackPosition   = "mark-last-playback-position"
)

// trackOrRef returns the stored track, or a bare reference when the store does not know it yet.
func trackOrRef(store *track.Store, id domain.TrackID) domain.Track {
	if id.IsZero() {
		return domain.Track{}
	}
	if t, ok := store.Get(id); ok {
		return t
	}
	return domain.Track{ID: id, Path: id.Path()}
}

// SavePlaybackProfile records where the current track was left before leaving it.
type SavePlaybackProfile struct {
	Profiles ports.PlaybackProfiles
	Store    *track.Store
}

// Name returns the action name.
func (a *SavePlaybackProfile) Name() string { return ActionSavePlaybackProfile }

// Execute saves the profile of the current track, if any.
func (a *SavePlaybackProfile) Execute(rc *RequestContext, ctl Controller) {
	if !rc.CurrentTrack.IsZero() {
		current := a.Store.Lookup(rc.CurrentTrack)
		a.Profiles.Save(domain.PlaybackProfile{
			Track:    rc.CurrentTrack,
			Position: domain.ResumePosition(rc.CurrentSeekPosition, current.Duration),
			SavedAt:  time.Now(),
		})
	}
	ctl.Proceed(rc)
}

// HaltPlayback stops any sounding audio.
type HaltPlayback struct {
	Engine ports.AudioEngine
}

// Name returns the action name.
func (a *HaltPlayback) Name() string { return ActionHaltPlayback }

// Execute stops the engine.
func (a *HaltPlayback) Execute(rc *RequestContext, ctl Controller) {
	if err := a.Engine.Stop(); err != nil {
		ctl.Terminate(rc, domain.NewPlaybackError(rc.CurrentTrack, "halt", "could not stop the current track", err))
		return
	}
	rc.CurrentState = domain.StateStopped
	ctl.Proceed(rc)
}

// AudioFilePreparation makes sure the requested track has metadata and can be decoded.
// A metadata read that is not cached runs on the high priority pool and the
// chain resumes from that pool's worker.
type AudioFilePreparation struct {
	Store    *track.Store
	Registry *metadata.Registry
	Pool     *metadata.Pool
	Preparer ports.TrackPreparer
	Logger   *slog.Logger
}

// Name returns the action name.
func (a *AudioFilePreparation) Name() string { return ActionAudioFilePreparation }

// Execute prepares the requested track or terminates the chain.
func (a *AudioFilePreparation) Execute(rc *RequestContext, ctl Controller) {
	if rc.RequestedTrack.IsZero() {
		ctl.Terminate(rc, domain.ErrNoTrackRequested)
		return
	}

	t, _ := a.Store.Acquire(rc.RequestedTrack.Path())
	if !t.IsValid() {
		ctl.Terminate(rc, domain.NewPlaybackError(t.ID, "prepare", "track is not playable", t.ValidationError))
		return
	}

	if t.HasMetadata() {
		a.prepare(rc, ctl, t)
		return
	}

	if md, ok := a.Registry.Get(t.Path); ok {
		t, _ = a.Store.ApplyMetadata(t.ID, md)
		a.prepare(rc, ctl, t)
		return
	}

	go func() {
		md, err := domain.Metadata{}, error(domain.ErrNoMetadata)
		runErr := a.Pool.Run(context.Background(), []metadata.Task{func(context.Context) {
			md, err = a.Registry.Read(t.Path)
		}})
		if runErr != nil && err == nil {
			err = runErr
		}

		if err != nil {
			_, _ = a.Store.Invalidate(t.ID, err)
			ctl.Terminate(rc, domain.NewPlaybackError(t.ID, "metadata", "could not read the track", err))
			return
		}

		prepared, _ := a.Store.ApplyMetadata(t.ID, md)
		a.prepare(rc, ctl, prepared)
	}()
}

func (a *AudioFilePreparation) prepare(rc *RequestContext, ctl Controller, t domain.Track) {
	if err := a.Preparer.Prepare(t); err != nil {
		_, _ = a.Store.Invalidate(t.ID, err)
		ctl.Terminate(rc, domain.NewPlaybackError(t.ID, "prepare", "decoder is not ready", err))
		return
	}

	a.Logger.Debug("track prepared", slog.String("track", t.Path))
	ctl.Proceed(rc)
}

// ApplyPlaybackProfile restores the saved position of the requested track
// unless the request asked for an explicit start position.
type ApplyPlaybackProfile struct {
	Profiles ports.PlaybackProfiles
}

// Name returns the action name.
func (a *ApplyPlaybackProfile) Name() string { return ActionApplyPlaybackProfile }

// Execute fills Params.StartPosition from the profile.
func (a *ApplyPlaybackProfile) Execute(rc *RequestContext, ctl Controller) {
	if rc.Params.StartPosition == nil {
		if profile, ok := a.Profiles.Get(rc.RequestedTrack); ok && profile.Position > 0 {
			position := profile.Position
			rc.Params.StartPosition = &position
		}
	}
	ctl.Proceed(rc)
}

// StartPlayback commands the engine to start the requested track, after the
// requested gap if there is one.
type StartPlayback struct {
	Engine  ports.AudioEngine
	Store   *track.Store
	Manager *ContextManager
	Bus     ports.EventBus
	Logger  *slog.Logger
}

// Name returns the action name.
func (a *StartPlayback) Name() string { return ActionStartPlayback }

// Execute starts the engine, or schedules the start after Params.Delay.
func (a *StartPlayback) Execute(rc *RequestContext, ctl Controller) {
	t := a.Store.Lookup(rc.RequestedTrack)

	var from time.Duration
	if rc.Params.StartPosition != nil {
		from = domain.ResumePosition(*rc.Params.StartPosition, t.Duration)
	}

	delay := rc.Params.Delay
	if delay <= 0 {
		a.start(rc, ctl, t, from)
		return
	}

	rc.CurrentState = domain.StateWaiting
	rc.GapContextID = uuid.New()
	a.Bus.Publish(domain.NewGapStartedEvent(rc.GapContextID.String(), trackOrRef(a.Store, rc.CurrentTrack), t, delay))

	time.AfterFunc(delay, func() {
		if !a.Manager.IsCurrent(rc) {
			a.Logger.Debug("gap superseded, not starting",
				slog.String("request", rc.ID.String()),
				slog.String("gap", rc.GapContextID.String()))
			ctl.Proceed(rc)
			return
		}
		a.start(rc, ctl, t, from)
	})
}

func (a *StartPlayback) start(rc *RequestContext, ctl Controller, t domain.Track, from time.Duration) {
	if err := a.Engine.Start(t, from); err != nil {
		ctl.Terminate(rc, domain.NewPlaybackError(t.ID, "start", "engine refused the track", err))
		return
	}

	rc.CurrentState = domain.StatePlaying
	rc.GapContextID = uuid.Nil
	ctl.Proceed(rc)
}

// PredictiveTrackPreparation reads the metadata of the track expected to play
// next in the background, so the following transition does not wait for it.
// It never fails the chain.
type PredictiveTrackPreparation struct {
	Queue    ports.PlayQueue
	Store    *track.Store
	Registry *metadata.Registry
	Pool     *metadata.Pool
	Logger   *slog.Logger

	wg sync.WaitGroup
}

// Name returns the action name.
func (a *PredictiveTrackPreparation) Name() string { return ActionPredictiveTrackPreparation }

// Execute schedules the read and proceeds immediately.
func (a *PredictiveTrackPreparation) Execute(rc *RequestContext, ctl Controller) {
	defer ctl.Proceed(rc)

	nextID, ok := a.Queue.Subsequent(rc.RequestedTrack)
	if !ok {
		return
	}

	next, _ := a.Store.Acquire(nextID.Path())
	if next.HasMetadata() || !next.IsValid() {
		return
	}

	if md, ok := a.Registry.Get(next.Path); ok {
		_, _ = a.Store.ApplyMetadata(next.ID, md)
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		_ = a.Pool.Run(context.Background(), []metadata.Task{func(context.Context) {
			md, err := a.Registry.Read(next.Path)
			if err != nil {
				a.Logger.Debug("predictive read failed", slog.String("track", next.Path), slog.Any("error", err))
				return
			}
			_, _ = a.Store.ApplyMetadata(next.ID, md)
		}})
	}()
}

// Wait blocks until every background read has finished.
func (a *PredictiveTrackPreparation) Wait() {
	a.wg.Wait()
}

// MarkLastPlaybackPosition records where the current track stopped.
// A track that played to its end is recorded at zero. It never fails the chain.
type MarkLastPlaybackPosition struct {
	Profiles ports.PlaybackProfiles
	Store    *track.Store
}

// Name returns the action name.
func (a *MarkLastPlaybackPosition) Name() string { return ActionMarkLastPlaybackPosition }

// Execute records the position of the current track, if any.
func (a *MarkLastPlaybackPosition) Execute(rc *RequestContext, ctl Controller) {
	if !rc.CurrentTrack.IsZero() {
		current := a.Store.Lookup(rc.CurrentTrack)
		a.Profiles.MarkLastPosition(rc.CurrentTrack, domain.ResumePosition(rc.CurrentSeekPosition, current.Duration))
	}
	ctl.Proceed(rc)
}
