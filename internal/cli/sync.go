// sync.go implements the "formcourier sync" command: the two-pass push of
// queued responses and audio attachments.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	syncpkg "github.com/formcourier/FormCourier/internal/sync"
)

var syncResponsesOnly bool
var syncAttachmentsOnly bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push queued submissions and recordings to the server",
	Long: `Upload completed submissions as one batch, then upload pending audio
recordings file by file. Attachments are only attempted once their
submissions have been synced.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncResponsesOnly, "responses-only", false, "Only sync form responses")
	syncCmd.Flags().BoolVar(&syncAttachmentsOnly, "attachments-only", false, "Only sync audio attachments")
}

func runSync(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	client, err := app.Client()
	if err != nil {
		return err
	}
	rec := syncpkg.NewReconciler(app.Store, client)

	if !syncAttachmentsOnly {
		report, err := rec.SyncResponses(cmd.Context())
		if err != nil {
			return fmt.Errorf("response sync failed: %w", err)
		}
		if report.Synced == 0 {
			fmt.Fprintln(out, "No completed submissions to sync.")
		} else {
			fmt.Fprintf(out, "Synced %d submission(s).\n", report.Synced)
		}
	}

	if !syncResponsesOnly {
		report, err := rec.SyncAttachments(cmd.Context())
		if errors.Is(err, syncpkg.ErrResponsesNotSynced) {
			fmt.Fprintln(out, "Recordings pending: sync form data first.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("attachment sync failed: %w", err)
		}
		switch {
		case report.Uploaded == 0 && report.Failed == 0:
			fmt.Fprintln(out, "No recordings to upload.")
		case report.Failed > 0:
			fmt.Fprintf(out, "Uploaded %d recording(s), %d failed and will retry next sync.\n", report.Uploaded, report.Failed)
		default:
			fmt.Fprintf(out, "Uploaded %d recording(s).\n", report.Uploaded)
		}
	}
	return nil
}
