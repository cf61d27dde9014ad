package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"guardian/internal/bootstrap"
	"guardian/internal/bootstrap/logging"
	"guardian/internal/errs"
	"guardian/internal/usecase/pipeline"
)

// reviewCmd groups reviewer tooling for operators without the HTTP API.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and resolve the human-review queue",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records awaiting human review",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *pipeline.Service) error {
		items, err := svc.ListPendingReviews(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "list review queue")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VIDEO\tFINAL\tWAITING\tDEADLINE\tOVERDUE")
		for _, item := range items {
			final := "-"
			if item.FinalScore != nil {
				final = fmt.Sprintf("%.2f", *item.FinalScore)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
				item.VideoID,
				final,
				item.Waiting.Round(time.Minute),
				item.Deadline.Format(time.RFC3339),
				item.Overdue,
			)
		}
		return errs.Wrap(w.Flush(), "write review list")
	}),
}

var (
	verdictApprove  bool
	verdictReviewer string
	verdictNotes    string
)

var reviewResolveCmd = &cobra.Command{
	Use:   "resolve <video-id>",
	Short: "Submit a verdict for a record in review",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		videoID := cmd.Flags().Args()[0]

		record, err := svc.SubmitVerdict(ctx, pipeline.VerdictInput{
			VideoID:  videoID,
			Approved: verdictApprove,
			Reviewer: verdictReviewer,
			Notes:    verdictNotes,
		})
		if err != nil {
			return errs.Wrap(err, "submit verdict")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s resolved: %s\n", record.VideoID, record.Status); err != nil {
			return errs.Wrap(err, "write resolve output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewResolveCmd)

	reviewResolveCmd.Flags().BoolVar(&verdictApprove, "approve", false, "Approve the record (reject when omitted)")
	reviewResolveCmd.Flags().StringVar(&verdictReviewer, "reviewer", "", "Reviewer identifier")
	reviewResolveCmd.Flags().StringVar(&verdictNotes, "notes", "", "Reviewer notes")
}
