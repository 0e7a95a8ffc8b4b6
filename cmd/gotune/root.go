package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/gotune-core/internal/app"
	"github.com/tejashwikalptaru/gotune-core/internal/config"
)

const defaultConfigPath = "gotune.yaml"

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to the YAML configuration file")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address (overrides the config file)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// rootCmd is the entry point of the CLI.
var rootCmd = &cobra.Command{
	Use:           "gotune",
	Short:         "Headless playback core of the GoTune music player",
	Long:          "gotune scans music folders, reads track metadata concurrently and drives playback through request chains.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runApplication loads the configuration, lets configure adjust it, builds the
// application and calls fn with a context canceled on SIGINT or SIGTERM.
func runApplication(
	cmd *cobra.Command,
	configure func(cfg *app.Config),
	fn func(ctx context.Context, application *app.Application) error,
) error {
	fsys := afero.NewOsFs()

	settings, err := config.Load(fsys, lo.Must(cmd.Flags().GetString("config")))
	if err != nil {
		return err
	}
	if level := lo.Must(cmd.Flags().GetString("log-level")); level != "" {
		settings.Logger.Level = level
	}
	if addr := lo.Must(cmd.Flags().GetString("metrics-addr")); addr != "" {
		settings.Metrics.Addr = addr
	}

	cfg := app.DefaultConfig()
	cfg.Settings = settings
	cfg.Fs = fsys
	cfg.Registerer = prometheus.DefaultRegisterer
	if configure != nil {
		configure(&cfg)
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Settings.Metrics.Addr != "" {
		server := serveMetrics(cfg.Settings.Metrics.Addr, application.Logger())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	return fn(ctx, application)
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	return server
}
