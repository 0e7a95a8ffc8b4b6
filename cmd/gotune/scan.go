package main

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/gotune-core/internal/app"
	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolP("watch", "w", false, "Keep watching the folders after the scan until interrupted")
}

// scanCmd scans folders into the library and refreshes the metadata cache.
var scanCmd = &cobra.Command{
	Use:   "scan [folder...]",
	Short: "Scan music folders and cache their metadata",
	Long:  "Scan the given folders (or the configured library folders) recursively, read the metadata of every supported file and store it in the metadata cache.",
	RunE: func(cmd *cobra.Command, args []string) error {
		watch := lo.Must(cmd.Flags().GetBool("watch"))

		configure := func(cfg *app.Config) {
			if len(args) > 0 {
				cfg.Settings.Library.Folders = args
			}
			cfg.Settings.Library.Watch = watch
		}

		return runApplication(cmd, configure, func(ctx context.Context, application *app.Application) error {
			out := cmd.OutOrStdout()

			sub := application.EventBus().Subscribe(domain.EventScanCompleted, func(event domain.Event) {
				if e, ok := event.(domain.ScanCompletedEvent); ok {
					fmt.Fprintf(out, "%s: %d files, %d loaded, %d errors\n",
						e.Progress.Folder, e.Progress.FilesFound, e.Progress.TracksLoaded, e.Progress.Errors)
				}
			})
			defer application.EventBus().Unsubscribe(sub)

			if err := application.Run(ctx); err != nil {
				return err
			}

			for id, err := range application.Library().LoadErrors() {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", id.Path(), err)
			}
			fmt.Fprintf(out, "library: %d tracks, metadata cache: %d entries\n",
				application.Library().Len(), application.Metadata().Len())

			if watch {
				fmt.Fprintln(out, "watching for changes, press Ctrl+C to stop")
				<-ctx.Done()
			}
			return nil
		})
	},
}
