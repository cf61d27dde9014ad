package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"guardian/internal/bootstrap"
	"guardian/internal/bootstrap/logging"
	"guardian/internal/errs"
	"guardian/internal/infrastructure/artifact"
	"guardian/internal/usecase/pipeline"
)

var ingestVideoID string

// ingestCmd copies a local file into the artifact store, registers the
// record, and enqueues it for screening. Development tooling; production
// uploads land through the upstream ingestion service.
var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a local video file into the moderation pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		path := cmd.Flags().Args()[0]

		file, err := os.Open(path)
		if err != nil {
			return errs.Wrapf(err, "open %s", path)
		}
		defer file.Close()

		info, err := file.Stat()
		if err != nil {
			return errs.Wrapf(err, "stat %s", path)
		}

		store, err := artifact.NewFSStore(app.Config.Artifacts.Dir)
		if err != nil {
			return errs.Wrap(err, "open artifact store")
		}
		storageKey := filepath.ToSlash(filepath.Join("videos", filepath.Base(path)))
		if err := store.Put(ctx, storageKey, file); err != nil {
			return errs.Wrap(err, "store artifact")
		}

		record, err := svc.IngestVideo(ctx, pipeline.IngestInput{
			VideoID:    ingestVideoID,
			StorageKey: storageKey,
			SizeBytes:  info.Size(),
		})
		if err != nil {
			return errs.Wrap(err, "ingest video")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "ingested %s as %s\n", path, record.VideoID); err != nil {
			return errs.Wrap(err, "write ingest output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestVideoID, "video-id", "", "Video ID (generated when empty)")
}
