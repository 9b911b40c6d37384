// resume.go implements the "formcourier resume" command for continuing a
// saved submission.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <submission-id>",
	Short: "Continue a saved submission",
	Long: `Reopen a previously saved submission at the question where it was
left, with all answers and traversal history intact.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	sess, err := app.Manager.Resume(args[0])
	if err != nil {
		return fmt.Errorf("resuming submission: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resuming %q as %s\n\n", sess.Form().Title, sess.LocalID())
	return runSession(cmd, sess)
}
