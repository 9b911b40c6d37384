package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/formcourier/FormCourier/internal/models"
	"github.com/formcourier/FormCourier/internal/recorder"
	"github.com/formcourier/FormCourier/internal/store"
)

func testForm() models.Form {
	return models.Form{
		FormID: 7,
		Title:  "Water access survey",
		Questions: []models.Question{
			{ID: "q1", SequenceIndex: 0, Text: "Village name", Type: models.QuestionTypeText, Required: true},
			{ID: "q2", SequenceIndex: 1, Text: "Households", Type: models.QuestionTypeInteger},
			{ID: "q3", SequenceIndex: 2, Text: "Notes", Type: models.QuestionTypeText},
		},
	}
}

func newTestManager(t *testing.T) (*Manager, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	if err := st.SaveForm(testForm()); err != nil {
		t.Fatalf("SaveForm failed: %v", err)
	}
	return NewManager(st, recorder.New(t.TempDir())), st
}

func TestNewLocalIDFormat(t *testing.T) {
	id := NewLocalID()
	if !strings.HasPrefix(id, "submission_") {
		t.Errorf("local ID %q should carry the submission_ prefix", id)
	}
	if id == NewLocalID() {
		t.Errorf("consecutive local IDs should differ")
	}
}

func TestStartRejectsSecondSession(t *testing.T) {
	mgr, _ := newTestManager(t)

	if _, err := mgr.Start(testForm()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if _, err := mgr.Start(testForm()); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Start should fail with ErrSessionActive, got %v", err)
	}
}

func TestStartRejectsInvalidForm(t *testing.T) {
	mgr, _ := newTestManager(t)
	if _, err := mgr.Start(models.Form{FormID: 9}); err == nil {
		t.Errorf("Start should reject a form with no questions")
	}
}

func TestSaveProgressAndResumeRestoresState(t *testing.T) {
	mgr, _ := newTestManager(t)
	form := testForm()

	sess, err := mgr.Start(form)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	localID := sess.LocalID()

	sess.Answer("Riverside")
	if !sess.Walker().Advance() {
		t.Fatalf("advance failed")
	}
	sess.Answer("34")

	if err := mgr.SaveProgress(); err != nil {
		t.Fatalf("SaveProgress failed: %v", err)
	}
	if mgr.Active() != nil {
		t.Errorf("SaveProgress should end the session")
	}

	resumed, err := mgr.Resume(localID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	w := resumed.Walker()
	if w.Current() != 1 {
		t.Errorf("resumed at question %d, want 1", w.Current())
	}
	if a, ok := w.Answers().Get(0); !ok || a.Value != "Riverside" {
		t.Errorf("answer 0 = %+v, want Riverside", a)
	}
	if a, ok := w.Answers().Get(1); !ok || a.Value != "34" {
		t.Errorf("answer 1 = %+v, want 34", a)
	}
	if !w.Retreat() {
		t.Errorf("resumed history should allow retreating")
	}
	if w.Current() != 0 {
		t.Errorf("retreat landed at %d, want 0", w.Current())
	}
}

func TestResumeUnknownSubmission(t *testing.T) {
	mgr, _ := newTestManager(t)
	if _, err := mgr.Resume("submission_0_missing"); !errors.Is(err, ErrUnknownSubmission) {
		t.Errorf("Resume should fail with ErrUnknownSubmission, got %v", err)
	}
}

func TestCompleteGuardedBySubmitRule(t *testing.T) {
	mgr, st := newTestManager(t)

	sess, err := mgr.Start(testForm())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := mgr.Complete(); !errors.Is(err, ErrCannotSubmit) {
		t.Errorf("Complete away from the terminal question should fail, got %v", err)
	}

	sess.Answer("Riverside")
	sess.Walker().Advance()
	sess.Walker().Advance()
	if !sess.Walker().AtEnd() {
		t.Fatalf("setup: walker should be at the terminal question")
	}
	if err := mgr.Complete(); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	completed, err := st.GetCompletedSubmissions()
	if err != nil {
		t.Fatalf("GetCompletedSubmissions failed: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("completed queue has %d entries, want 1", len(completed))
	}
	if !completed[0].IsComplete {
		t.Errorf("completed submission should carry IsComplete")
	}
	if completed[0].LastIndex != 2 {
		t.Errorf("completed LastIndex = %d, want terminal index 2", completed[0].LastIndex)
	}
}

func TestSaveProgressQueuesRecordingAsNumberedPart(t *testing.T) {
	mgr, st := newTestManager(t)

	sess, err := mgr.Start(testForm())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	localID := sess.LocalID()
	sess.Answer("Riverside")

	if err := mgr.StartRecording(); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := mgr.SaveProgress(); err != nil {
		t.Fatalf("SaveProgress failed: %v", err)
	}

	atts, err := st.GetAttachments(localID)
	if err != nil {
		t.Fatalf("GetAttachments failed: %v", err)
	}
	if len(atts) != 1 {
		t.Fatalf("attachments = %d, want 1", len(atts))
	}
	if atts[0].PartNumber != 1 {
		t.Errorf("first partial recording should be part 1, got %d", atts[0].PartNumber)
	}
	if atts[0].UploadTag() != "recording_part_1" {
		t.Errorf("upload tag = %q, want recording_part_1", atts[0].UploadTag())
	}

	// Resume, record again, save again: the next part number follows on.
	if _, err := mgr.Resume(localID); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if err := mgr.StartRecording(); err != nil {
		t.Fatalf("second StartRecording failed: %v", err)
	}
	if err := mgr.SaveProgress(); err != nil {
		t.Fatalf("second SaveProgress failed: %v", err)
	}
	atts, _ = st.GetAttachments(localID)
	if len(atts) != 2 {
		t.Fatalf("attachments = %d, want 2", len(atts))
	}
	if atts[1].PartNumber != 2 {
		t.Errorf("second partial recording should be part 2, got %d", atts[1].PartNumber)
	}
}

func TestCompleteTagsUninterruptedRecordingAsFull(t *testing.T) {
	mgr, st := newTestManager(t)

	sess, err := mgr.Start(testForm())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	localID := sess.LocalID()
	sess.Answer("Riverside")
	sess.Walker().Advance()
	sess.Walker().Advance()

	if err := mgr.StartRecording(); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := mgr.Complete(); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	atts, _ := st.GetAttachments(localID)
	if len(atts) != 1 {
		t.Fatalf("attachments = %d, want 1", len(atts))
	}
	if atts[0].QuestionTag != models.FullRecordingTag || atts[0].PartNumber != 0 {
		t.Errorf("uninterrupted recording should be the full recording, got %+v", atts[0])
	}
}

func TestAbandonDiscardsSession(t *testing.T) {
	mgr, st := newTestManager(t)

	sess, err := mgr.Start(testForm())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	localID := sess.LocalID()
	sess.Answer("Riverside")
	mgr.Abandon()

	if mgr.Active() != nil {
		t.Errorf("Abandon should clear the active session")
	}
	sub, err := st.GetSubmission(localID)
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if sub != nil {
		t.Errorf("abandoned session must not persist anything")
	}
}
