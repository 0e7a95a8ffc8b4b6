package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/gotune-core/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/gotune-core/internal/app"
	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

const playTick = 100 * time.Millisecond

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().Float64P("speed", "s", 1, "Simulated playback speed factor")
	playCmd.Flags().Duration("fallback-length", 30*time.Second, "Length used for tracks whose duration is unknown")
	playCmd.Flags().Duration("gap", -1, "Silence between tracks (overrides the config file)")
}

// playCmd queues files and plays them through the in-memory engine.
var playCmd = &cobra.Command{
	Use:   "play file...",
	Short: "Queue files and play them on a simulated output",
	Long:  "Queue the given files with autoplay and run them through the playback chains on an in-memory engine that advances in real time.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		speed := lo.Must(cmd.Flags().GetFloat64("speed"))
		fallback := lo.Must(cmd.Flags().GetDuration("fallback-length"))
		gap := lo.Must(cmd.Flags().GetDuration("gap"))

		files := make([]string, 0, len(args))
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return err
			}
			files = append(files, abs)
		}

		engine := mock.NewEngine()
		configure := func(cfg *app.Config) {
			cfg.Engine = engine
			cfg.Settings.Library.Watch = false
			if gap >= 0 {
				cfg.Settings.Playback.GapBetweenTracks = gap
			}
		}

		return runApplication(cmd, configure, func(ctx context.Context, application *app.Application) error {
			engine.SetLogger(application.Logger())
			out := cmd.OutOrStdout()
			bus := application.EventBus()

			subs := []domain.SubscriptionID{
				bus.Subscribe(domain.EventTrackChanged, func(event domain.Event) {
					if e, ok := event.(domain.TrackChangedEvent); ok {
						fmt.Fprintf(out, "playing %s (%s)\n", e.Current.DisplayName(), e.Current.Duration)
					}
				}),
				bus.Subscribe(domain.EventTrackNotPlayed, func(event domain.Event) {
					if e, ok := event.(domain.TrackNotPlayedEvent); ok {
						fmt.Fprintf(cmd.ErrOrStderr(), "cannot play %s: %v\n", e.Failed.ID.Path(), e.Error)
					}
				}),
				bus.Subscribe(domain.EventTrackLoadFailed, func(event domain.Event) {
					if e, ok := event.(domain.TrackLoadFailedEvent); ok {
						fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", e.Track.ID.Path(), e.Error)
					}
				}),
			}
			defer func() {
				for _, id := range subs {
					bus.Unsubscribe(id)
				}
			}()

			if err := application.Queue().Enqueue(ctx, files, true); err != nil {
				return err
			}

			ticker := time.NewTicker(playTick)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					application.Playback().Stop().Wait(time.Second)
					return nil

				case <-ticker.C:
					drive(engine, time.Duration(float64(playTick)*speed), fallback)
					if finished(application) {
						fmt.Fprintln(out, "queue finished")
						return nil
					}
				}
			}
		})
	},
}

// drive advances the engine and ends the track once its length is reached.
func drive(engine *mock.Engine, delta, fallback time.Duration) {
	engine.SimulateProgress(delta)

	current, ok := engine.Current()
	if !ok {
		return
	}

	length := current.Duration
	if length <= 0 {
		length = fallback
	}
	if engine.Position() >= length {
		engine.Finish()
	}
}

func finished(application *app.Application) bool {
	status := application.Playback().Status()
	if status.State != domain.StateStopped || status.PendingCount > 0 {
		return false
	}
	return !application.Queue().IsActive() || application.Playback().Current().IsZero()
}
