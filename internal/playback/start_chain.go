package playback

import (
	"log/slog"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/metadata"
	"github.com/tejashwikalptaru/gotune-core/internal/metrics"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
	"github.com/tejashwikalptaru/gotune-core/internal/track"
)

// ChainConfig holds the collaborators of the start and stop chains.
type ChainConfig struct {
	Manager  *ContextManager
	Engine   ports.AudioEngine
	Queue    ports.PlayQueue
	Profiles ports.PlaybackProfiles
	Preparer ports.TrackPreparer
	Store    *track.Store
	Registry *metadata.Registry
	Pools    *metadata.Pools
	Bus      ports.EventBus
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
}

// StartChain moves the player to the requested track.
//
// Actions: save-playback-profile, halt-playback, audio-file-preparation,
// apply-playback-profile, start-playback, predictive-track-preparation.
type StartChain struct {
	*Chain

	cfg        ChainConfig
	predictive *PredictiveTrackPreparation
	logger     *slog.Logger
}

// NewStartChain builds the start chain.
func NewStartChain(cfg ChainConfig) *StartChain {
	logger := cfg.Logger.With(slog.String("service", "StartChain"))

	sc := &StartChain{
		cfg:    cfg,
		logger: logger,
		predictive: &PredictiveTrackPreparation{
			Queue:    cfg.Queue,
			Store:    cfg.Store,
			Registry: cfg.Registry,
			Pool:     cfg.Pools.Low,
			Logger:   logger,
		},
	}

	sc.Chain = NewChain("start", cfg.Manager, cfg.Logger, Hooks{
		BeforeExecute: sc.beforeExecute,
		OnComplete:    sc.onComplete,
		OnTerminate:   sc.onTerminate,
	}).
		WithMetrics(cfg.Metrics).
		WithAction(&SavePlaybackProfile{Profiles: cfg.Profiles, Store: cfg.Store}).
		WithAction(&HaltPlayback{Engine: cfg.Engine}).
		WithAction(&AudioFilePreparation{
			Store:    cfg.Store,
			Registry: cfg.Registry,
			Pool:     cfg.Pools.High,
			Preparer: cfg.Preparer,
			Logger:   logger,
		}).
		WithAction(&ApplyPlaybackProfile{Profiles: cfg.Profiles}).
		WithAction(&StartPlayback{
			Engine:  cfg.Engine,
			Store:   cfg.Store,
			Manager: cfg.Manager,
			Bus:     cfg.Bus,
			Logger:  logger,
		}).
		WithAction(sc.predictive)

	return sc
}

// WaitBackground blocks until background predictive reads finished.
func (sc *StartChain) WaitBackground() {
	sc.predictive.Wait()
}

func (sc *StartChain) beforeExecute(rc *RequestContext) {
	sc.cfg.Bus.Publish(domain.NewPreTrackChangeEvent(
		trackOrRef(sc.cfg.Store, rc.CurrentTrack),
		trackOrRef(sc.cfg.Store, rc.RequestedTrack),
		rc.RequestedByUser,
	))
}

func (sc *StartChain) onComplete(rc *RequestContext) {
	if !sc.cfg.Manager.IsCurrent(rc) {
		sc.logger.Debug("stale request completed", rc.logAttrs()...)
		return
	}

	sc.cfg.Bus.Publish(domain.NewTrackChangedEvent(
		trackOrRef(sc.cfg.Store, rc.CurrentTrack),
		trackOrRef(sc.cfg.Store, rc.RequestedTrack),
		rc.CurrentState,
		sc.cfg.Engine.Position(),
	))
}

// onTerminate halts the engine and the queue and reports the failed track.
// A request that was superseded leaves the player to the newer one.
func (sc *StartChain) onTerminate(rc *RequestContext, err error) {
	if !sc.cfg.Manager.IsCurrent(rc) {
		sc.logger.Info("stale request failed", append(rc.logAttrs(), slog.Any("error", err))...)
		return
	}

	if stopErr := sc.cfg.Engine.Stop(); stopErr != nil {
		sc.logger.Error("failed to stop engine after failed start", slog.Any("error", stopErr))
	}
	sc.cfg.Queue.Stop()
	rc.CurrentState = domain.StateStopped

	if rc.RequestedTrack.IsZero() {
		return
	}

	sc.logger.Warn("track not played", append(rc.logAttrs(), slog.Any("error", err))...)
	sc.cfg.Bus.Publish(domain.NewTrackNotPlayedEvent(
		trackOrRef(sc.cfg.Store, rc.CurrentTrack),
		trackOrRef(sc.cfg.Store, rc.RequestedTrack),
		err,
	))
}
