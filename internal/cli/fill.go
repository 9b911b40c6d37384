// fill.go implements the "formcourier fill" command: the interactive loop
// that walks a form question by question.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formcourier/FormCourier/internal/models"
	"github.com/formcourier/FormCourier/internal/session"
)

var fillCmd = &cobra.Command{
	Use:   "fill <form-id>",
	Short: "Start filling a cached form",
	Long: `Walk a form question by question. Navigation follows the form's
branch rules; required questions must be answered before moving on.

At each prompt, type an answer or one of:
  :next     advance to the next question
  :back     go back one question (discards the current answer)
  :record   start an audio recording
  :stop     stop the current recording
  :save     save progress and exit
  :submit   finalize at the last question
  :quit     exit, choosing whether to save`,
	Args: cobra.ExactArgs(1),
	RunE: runFill,
}

func runFill(cmd *cobra.Command, args []string) error {
	formID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid form ID %q", args[0])
	}
	form, err := app.Store.GetForm(formID)
	if err != nil {
		return fmt.Errorf("loading form %d: %w", formID, err)
	}
	if form == nil {
		return fmt.Errorf("form %d not cached; run: formcourier forms fetch", formID)
	}

	sess, err := app.Manager.Start(*form)
	if err != nil {
		return fmt.Errorf("starting submission: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Filling %q as %s\n\n", form.Title, sess.LocalID())
	return runSession(cmd, sess)
}

// runSession drives the interactive question loop for a started or resumed
// session. It owns the session until save, submit, or abandon.
func runSession(cmd *cobra.Command, sess *session.Session) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	walker := sess.Walker()

	for {
		renderQuestion(out, sess)
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && err != io.EOF {
				app.Manager.Abandon()
				return err
			}
			// EOF saves progress rather than losing it.
			return saveAndReport(out)
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case ":next", "":
			if walker.AtEnd() {
				fmt.Fprintln(out, "Last question. Use :submit to finish or :save to keep for later.")
				continue
			}
			// CanAdvance adds the validity check Advance alone does not
			// make, so an invalid required answer cannot be skipped past.
			if !walker.CanAdvance() || !walker.Advance() {
				fmt.Fprintln(out, blockedMessage(walker.CurrentQuestion()))
			}
		case ":back":
			if !walker.Retreat() {
				if confirm(out, scanner, "At the first question. Exit without saving? [y/N] ") {
					app.Manager.Abandon()
					fmt.Fprintln(out, "Discarded.")
					return nil
				}
			}
		case ":record":
			if err := app.Manager.StartRecording(); err != nil {
				fmt.Fprintf(out, "Cannot record: %v\n", err)
			} else {
				fmt.Fprintln(out, "Recording...")
			}
		case ":stop":
			uri, err := app.Manager.StopRecording()
			if err != nil {
				fmt.Fprintf(out, "Cannot stop: %v\n", err)
			} else {
				fmt.Fprintf(out, "Recording saved: %s\n", uri)
			}
		case ":save":
			return saveAndReport(out)
		case ":submit":
			if err := app.Manager.Complete(); err != nil {
				fmt.Fprintf(out, "Cannot submit: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "Submission queued for sync.")
			return nil
		case ":quit":
			if confirm(out, scanner, "Save progress before exiting? [y/N] ") {
				return saveAndReport(out)
			}
			app.Manager.Abandon()
			fmt.Fprintln(out, "Discarded.")
			return nil
		default:
			q := walker.CurrentQuestion()
			if len(q.Options) > 0 && !optionListed(q.Options, input) {
				fmt.Fprintln(out, "Choose one of the listed options.")
				continue
			}
			sess.Answer(input)
			if !walker.IsValid(walker.Current()) {
				fmt.Fprintf(out, "Invalid %s answer.\n", q.Type)
				continue
			}
			// Checkbox stays on the question so more options can be
			// toggled; everything else advances when allowed.
			if q.Type != models.QuestionTypeCheckbox && !walker.AtEnd() {
				walker.Advance()
			}
		}
	}
}

func saveAndReport(out io.Writer) error {
	active := app.Manager.Active()
	if active == nil {
		return nil
	}
	localID := active.LocalID()
	if err := app.Manager.SaveProgress(); err != nil {
		return fmt.Errorf("saving progress: %w", err)
	}
	fmt.Fprintf(out, "Saved. Resume with: formcourier resume %s\n", localID)
	return nil
}

func confirm(out io.Writer, scanner *bufio.Scanner, prompt string) bool {
	fmt.Fprint(out, prompt)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// renderQuestion prints the current question, its options, and any recorded
// answer.
func renderQuestion(out io.Writer, sess *session.Session) {
	walker := sess.Walker()
	q := walker.CurrentQuestion()
	total := len(sess.Form().Questions)

	required := ""
	if q.Required {
		required = " (required)"
	}
	fmt.Fprintf(out, "[%d/%d]%s %s\n", walker.Current()+1, total, required, q.Text)

	if len(q.Options) > 0 {
		answer, _ := sess.CurrentAnswer()
		for _, opt := range q.Options {
			marker := " "
			if q.Type == models.QuestionTypeCheckbox && answerSelected(answer, opt) {
				marker = "x"
			} else if answer.Key() == opt {
				marker = "x"
			}
			fmt.Fprintf(out, "  [%s] %s\n", marker, opt)
		}
	} else if answer, ok := sess.CurrentAnswer(); ok && !answer.IsZero() {
		fmt.Fprintf(out, "  current answer: %s\n", answer.Key())
	}
}

func optionListed(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

func answerSelected(a models.Answer, option string) bool {
	if !a.Multi {
		return false
	}
	for _, sel := range a.Selections {
		if sel == option {
			return true
		}
	}
	return false
}

func blockedMessage(q models.Question) string {
	if q.Required {
		return fmt.Sprintf("%q requires a valid answer before moving on.", q.Text)
	}
	return "Cannot advance from here."
}
