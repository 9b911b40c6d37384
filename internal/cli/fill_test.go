package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/formcourier/FormCourier/internal/config"
	"github.com/formcourier/FormCourier/internal/models"
	"github.com/formcourier/FormCourier/internal/recorder"
	"github.com/formcourier/FormCourier/internal/session"
	"github.com/formcourier/FormCourier/internal/store"
)

func testApp(t *testing.T) (*App, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	stateDir := t.TempDir()
	a := &App{
		StateDir: stateDir,
		Config:   config.DefaultConfig(stateDir),
		Store:    st,
		Manager:  session.NewManager(st, recorder.New(t.TempDir())),
	}
	app = a
	return a, st
}

func surveyForm() models.Form {
	return models.Form{
		FormID: 3,
		Title:  "Water access survey",
		Questions: []models.Question{
			{ID: "q1", SequenceIndex: 0, Text: "Village name", Type: models.QuestionTypeText, Required: true},
			{ID: "q2", SequenceIndex: 1, Text: "Households", Type: models.QuestionTypeInteger},
			{ID: "q3", SequenceIndex: 2, Text: "Notes", Type: models.QuestionTypeText},
		},
	}
}

// scriptedCommand builds a throwaway command with scripted stdin.
func scriptedCommand(input string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	return cmd, &out
}

func TestFillAnswerThroughSubmit(t *testing.T) {
	a, st := testApp(t)

	sess, err := a.Manager.Start(surveyForm())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cmd, out := scriptedCommand("Riverside\n34\nall good\n:submit\n")

	if err := runSession(cmd, sess); err != nil {
		t.Fatalf("runSession failed: %v", err)
	}
	if !strings.Contains(out.String(), "queued for sync") {
		t.Errorf("submit should confirm queueing; output:\n%s", out.String())
	}

	completed, _ := st.GetCompletedSubmissions()
	if len(completed) != 1 {
		t.Fatalf("completed queue = %d entries, want 1", len(completed))
	}
	sub := completed[0]
	if sub.Answers[0].Value != "Riverside" || sub.Answers[1].Value != "34" || sub.Answers[2].Value != "all good" {
		t.Errorf("answers = %+v", sub.Answers)
	}
}

func TestFillInvalidAnswerStaysOnQuestion(t *testing.T) {
	a, st := testApp(t)

	sess, err := a.Manager.Start(surveyForm())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// "abc" fails integer validation at question 2, then gets corrected.
	cmd, out := scriptedCommand("Riverside\nabc\n34\nnotes\n:submit\n")

	if err := runSession(cmd, sess); err != nil {
		t.Fatalf("runSession failed: %v", err)
	}
	if !strings.Contains(out.String(), "Invalid integer answer") {
		t.Errorf("invalid answer should be reported; output:\n%s", out.String())
	}
	completed, _ := st.GetCompletedSubmissions()
	if len(completed) != 1 {
		t.Fatalf("completed queue = %d entries, want 1", len(completed))
	}
	if completed[0].Answers[1].Value != "34" {
		t.Errorf("corrected answer = %+v", completed[0].Answers[1])
	}
}

func TestFillNextBlockedByInvalidRequiredAnswer(t *testing.T) {
	a, st := testApp(t)

	form := models.Form{
		FormID: 4,
		Title:  "Contact survey",
		Questions: []models.Question{
			{ID: "q1", SequenceIndex: 0, Text: "Phone", Type: models.QuestionTypePhone, Required: true},
			{ID: "q2", SequenceIndex: 1, Text: "Notes", Type: models.QuestionTypeText},
		},
	}
	sess, err := a.Manager.Start(form)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// ":next" must not skip past the invalid required answer.
	cmd, out := scriptedCommand("123\n:next\n4165551234\ndone\n:submit\n")

	if err := runSession(cmd, sess); err != nil {
		t.Fatalf("runSession failed: %v", err)
	}
	if !strings.Contains(out.String(), "requires a valid answer") {
		t.Errorf("blocked :next should be reported; output:\n%s", out.String())
	}

	completed, _ := st.GetCompletedSubmissions()
	if len(completed) != 1 {
		t.Fatalf("completed queue = %d entries, want 1", len(completed))
	}
	if got := completed[0].Answers[0].Value; got != "4165551234" {
		t.Errorf("queued answer = %q, want the corrected phone number", got)
	}
}

func TestFillRejectsUnlistedOption(t *testing.T) {
	a, st := testApp(t)

	form := models.Form{
		FormID: 5,
		Title:  "Source survey",
		Questions: []models.Question{
			{ID: "q1", SequenceIndex: 0, Text: "Water source", Type: models.QuestionTypeMCQ,
				Required: true, Options: []string{"well", "river"}},
			{ID: "q2", SequenceIndex: 1, Text: "Notes", Type: models.QuestionTypeText},
		},
	}
	sess, err := a.Manager.Start(form)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cmd, out := scriptedCommand("purple\nwell\nnotes\n:submit\n")

	if err := runSession(cmd, sess); err != nil {
		t.Fatalf("runSession failed: %v", err)
	}
	if !strings.Contains(out.String(), "Choose one of the listed options") {
		t.Errorf("unlisted option should be rejected; output:\n%s", out.String())
	}

	completed, _ := st.GetCompletedSubmissions()
	if len(completed) != 1 {
		t.Fatalf("completed queue = %d entries, want 1", len(completed))
	}
	if got := completed[0].Answers[0].Value; got != "well" {
		t.Errorf("queued answer = %q, want well", got)
	}
}

func TestFillSaveForLater(t *testing.T) {
	a, st := testApp(t)

	sess, err := a.Manager.Start(surveyForm())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	localID := sess.LocalID()
	cmd, out := scriptedCommand("Riverside\n:save\n")

	if err := runSession(cmd, sess); err != nil {
		t.Fatalf("runSession failed: %v", err)
	}
	if !strings.Contains(out.String(), "formcourier resume "+localID) {
		t.Errorf("save should print the resume hint; output:\n%s", out.String())
	}

	saved, _ := st.GetSubmission(localID)
	if saved == nil || saved.IsComplete {
		t.Fatalf("saved submission = %+v, want incomplete", saved)
	}
	if saved.LastIndex != 1 {
		t.Errorf("saved LastIndex = %d, want 1", saved.LastIndex)
	}
}

func TestFillQuitDiscards(t *testing.T) {
	a, st := testApp(t)

	sess, err := a.Manager.Start(surveyForm())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	localID := sess.LocalID()
	cmd, _ := scriptedCommand("Riverside\n:quit\nn\n")

	if err := runSession(cmd, sess); err != nil {
		t.Fatalf("runSession failed: %v", err)
	}
	if sub, _ := st.GetSubmission(localID); sub != nil {
		t.Errorf("discarded session must not persist, got %+v", sub)
	}
	if a.Manager.Active() != nil {
		t.Errorf("discard should clear the active session")
	}
}

func TestFillEOFSavesProgress(t *testing.T) {
	a, st := testApp(t)

	sess, err := a.Manager.Start(surveyForm())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	localID := sess.LocalID()
	cmd, _ := scriptedCommand("Riverside\n")

	if err := runSession(cmd, sess); err != nil {
		t.Fatalf("runSession failed: %v", err)
	}
	saved, _ := st.GetSubmission(localID)
	if saved == nil {
		t.Fatalf("EOF should save progress rather than drop it")
	}
	if saved.Answers[0].Value != "Riverside" {
		t.Errorf("saved answers = %+v", saved.Answers)
	}
}
