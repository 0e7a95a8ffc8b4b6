package playback

import (
	"log/slog"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

// StopChain moves the player to stopped.
//
// Actions: mark-last-playback-position, save-playback-profile, halt-playback.
type StopChain struct {
	*Chain

	cfg    ChainConfig
	logger *slog.Logger
}

// NewStopChain builds the stop chain.
func NewStopChain(cfg ChainConfig) *StopChain {
	sc := &StopChain{
		cfg:    cfg,
		logger: cfg.Logger.With(slog.String("service", "StopChain")),
	}

	sc.Chain = NewChain("stop", cfg.Manager, cfg.Logger, Hooks{
		OnComplete:  sc.onComplete,
		OnTerminate: sc.onTerminate,
	}).
		WithMetrics(cfg.Metrics).
		WithAction(&MarkLastPlaybackPosition{Profiles: cfg.Profiles, Store: cfg.Store}).
		WithAction(&SavePlaybackProfile{Profiles: cfg.Profiles, Store: cfg.Store}).
		WithAction(&HaltPlayback{Engine: cfg.Engine})

	return sc
}

func (sc *StopChain) onComplete(rc *RequestContext) {
	if !sc.cfg.Manager.IsCurrent(rc) {
		return
	}

	sc.cfg.Bus.Publish(domain.NewTrackChangedEvent(
		trackOrRef(sc.cfg.Store, rc.CurrentTrack),
		domain.Track{},
		domain.StateStopped,
		0,
	))
}

func (sc *StopChain) onTerminate(rc *RequestContext, err error) {
	if stopErr := sc.cfg.Engine.Stop(); stopErr != nil {
		sc.logger.Error("failed to stop engine", slog.Any("error", stopErr))
	}
	sc.logger.Warn("stop request failed", append(rc.logAttrs(), slog.Any("error", err))...)
}
