// entries.go implements the "formcourier entries" command for inspecting and
// managing the local submission queue.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List locally saved submissions",
	RunE:  runEntriesList,
}

var entriesRemoveCmd = &cobra.Command{
	Use:   "remove <submission-id>",
	Short: "Delete a saved submission from the local queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntriesRemove,
}

var entriesReopenCmd = &cobra.Command{
	Use:   "reopen <submission-id>",
	Short: "Mark a completed submission as in progress again",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntriesReopen,
}

func init() {
	entriesCmd.AddCommand(entriesRemoveCmd)
	entriesCmd.AddCommand(entriesReopenCmd)
}

func runEntriesList(cmd *cobra.Command, args []string) error {
	subs, err := app.Store.GetSubmissions()
	if err != nil {
		return fmt.Errorf("listing submissions: %w", err)
	}
	if len(subs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved submissions.")
		return nil
	}
	for _, sub := range subs {
		status := "in progress"
		if sub.IsComplete {
			status = "ready to sync"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-40s form %-4d %-14s %d answer(s)  %s\n",
			sub.LocalID, sub.FormID, status, len(sub.Answers), sub.Timestamp.Format("2006-01-02 15:04"))
	}
	return nil
}

func runEntriesRemove(cmd *cobra.Command, args []string) error {
	localID := args[0]
	sub, err := app.Store.GetSubmission(localID)
	if err != nil {
		return fmt.Errorf("loading submission: %w", err)
	}
	if sub == nil {
		return fmt.Errorf("submission %s not found", localID)
	}
	if err := app.Store.DeleteSubmission(localID); err != nil {
		return fmt.Errorf("deleting submission: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", localID)
	return nil
}

func runEntriesReopen(cmd *cobra.Command, args []string) error {
	localID := args[0]
	sub, err := app.Store.GetSubmission(localID)
	if err != nil {
		return fmt.Errorf("loading submission: %w", err)
	}
	if sub == nil {
		return fmt.Errorf("submission %s not found", localID)
	}
	if !sub.IsComplete {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already in progress.\n", localID)
		return nil
	}
	if err := app.Store.MarkSubmissionIncomplete(localID); err != nil {
		return fmt.Errorf("reopening submission: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reopened %s. Resume with: formcourier resume %s\n", localID, localID)
	return nil
}
