package sync

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/formcourier/FormCourier/internal/models"
	"github.com/formcourier/FormCourier/internal/store"
)

// stubUploader records calls and fails on demand.
type stubUploader struct {
	entries     [][]models.SyncEntry
	uploads     []string // question tags in upload order
	failEntries bool
	failUploads map[string]bool // keyed by local URI
}

func (s *stubUploader) SyncEntries(ctx context.Context, entries []models.SyncEntry) (models.SyncResult, error) {
	if s.failEntries {
		return models.SyncResult{}, errors.New("server unavailable")
	}
	s.entries = append(s.entries, entries)
	return models.SyncResult{Count: len(entries)}, nil
}

func (s *stubUploader) UploadAttachment(ctx context.Context, att models.Attachment, responseID string, file io.Reader) error {
	if s.failUploads[att.LocalURI] {
		return errors.New("connection dropped")
	}
	if _, err := io.Copy(io.Discard, file); err != nil {
		return err
	}
	s.uploads = append(s.uploads, att.UploadTag())
	return nil
}

func completedSubmission(localID string, formID int) models.Submission {
	return models.Submission{
		LocalID:    localID,
		FormID:     formID,
		Answers:    map[int]models.Answer{0: models.ScalarAnswer("yes")},
		IsComplete: true,
		Timestamp:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestSyncResponsesBatchesAndDequeues(t *testing.T) {
	st := store.NewInMemoryStore()
	st.SaveSubmission(completedSubmission("submission_1_aa", 3))
	st.SaveSubmission(completedSubmission("submission_2_bb", 3))
	st.SaveSubmission(models.Submission{LocalID: "submission_3_cc", FormID: 3}) // in progress

	up := &stubUploader{}
	rec := NewReconciler(st, up)

	report, err := rec.SyncResponses(context.Background())
	if err != nil {
		t.Fatalf("SyncResponses failed: %v", err)
	}
	if report.Synced != 2 {
		t.Errorf("Synced = %d, want 2", report.Synced)
	}
	if len(up.entries) != 1 || len(up.entries[0]) != 2 {
		t.Fatalf("expected one batch of 2 entries, got %+v", up.entries)
	}

	entry := up.entries[0][0]
	if entry.SubmissionID != "submission_1_aa" || entry.FormID != 3 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.SubmissionDate != "2026-03-14" || entry.SubmissionTime != "09:30:00" {
		t.Errorf("entry timestamps = %s %s", entry.SubmissionDate, entry.SubmissionTime)
	}

	// Synced submissions leave the queue; the incomplete one stays.
	subs, _ := st.GetSubmissions()
	if len(subs) != 1 || subs[0].LocalID != "submission_3_cc" {
		t.Errorf("queue after sync = %+v", subs)
	}

	mapping, _ := st.GetResponseMapping()
	if mapping["submission_1_aa"] != "submission_1_aa" {
		t.Errorf("mapping = %+v", mapping)
	}
}

func TestSyncResponsesNothingToSync(t *testing.T) {
	rec := NewReconciler(store.NewInMemoryStore(), &stubUploader{failEntries: true})
	report, err := rec.SyncResponses(context.Background())
	if err != nil {
		t.Fatalf("empty queue should be a no-op, got %v", err)
	}
	if report.Synced != 0 {
		t.Errorf("Synced = %d, want 0", report.Synced)
	}
}

func TestSyncResponsesBatchFailureLeavesStateUntouched(t *testing.T) {
	st := store.NewInMemoryStore()
	st.SaveSubmission(completedSubmission("submission_1_aa", 3))

	rec := NewReconciler(st, &stubUploader{failEntries: true})
	if _, err := rec.SyncResponses(context.Background()); err == nil {
		t.Fatalf("batch failure should surface an error")
	}

	subs, _ := st.GetCompletedSubmissions()
	if len(subs) != 1 {
		t.Errorf("failed sync must leave the queue intact, got %d entries", len(subs))
	}
	mapping, _ := st.GetResponseMapping()
	if len(mapping) != 0 {
		t.Errorf("failed sync must not record a mapping, got %+v", mapping)
	}
}

func TestSyncAttachmentsRequiresResponseSyncFirst(t *testing.T) {
	st := store.NewInMemoryStore()
	st.AddAttachment(models.Attachment{
		LocalURI:          "/tmp/rec.m4a",
		SubmissionLocalID: "submission_1_aa",
		Kind:              models.AttachmentKindAudio,
	})

	rec := NewReconciler(st, &stubUploader{})
	_, err := rec.SyncAttachments(context.Background())
	if !errors.Is(err, ErrResponsesNotSynced) {
		t.Errorf("expected ErrResponsesNotSynced, got %v", err)
	}
}

func writeRecording(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio-bytes"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestSyncAttachmentsPartialSuccess(t *testing.T) {
	dir := t.TempDir()
	st := store.NewInMemoryStore()

	good1 := writeRecording(t, dir, "part1.m4a")
	bad := writeRecording(t, dir, "part2.m4a")
	good2 := writeRecording(t, dir, "part3.m4a")
	for i, uri := range []string{good1, bad, good2} {
		st.AddAttachment(models.Attachment{
			LocalURI:          uri,
			SubmissionLocalID: "submission_1_aa",
			Kind:              models.AttachmentKindAudio,
			QuestionTag:       models.FullRecordingTag,
			PartNumber:        i + 1,
		})
	}
	st.SaveResponseMapping(map[string]string{"submission_1_aa": "submission_1_aa"})

	up := &stubUploader{failUploads: map[string]bool{bad: true}}
	rec := NewReconciler(st, up)

	report, err := rec.SyncAttachments(context.Background())
	if err != nil {
		t.Fatalf("SyncAttachments failed: %v", err)
	}
	if report.Uploaded != 2 || report.Failed != 1 {
		t.Errorf("report = %+v, want 2 uploaded, 1 failed", report)
	}

	// Only the failed file stays pending for the next pass.
	pending, _ := st.GetPendingAttachments()
	if len(pending) != 1 || pending[0].LocalURI != bad {
		t.Errorf("pending after sync = %+v", pending)
	}
}

func TestSyncAttachmentsMissingMappingEntryFails(t *testing.T) {
	dir := t.TempDir()
	st := store.NewInMemoryStore()
	uri := writeRecording(t, dir, "orphan.m4a")
	st.AddAttachment(models.Attachment{
		LocalURI:          uri,
		SubmissionLocalID: "submission_9_zz",
		Kind:              models.AttachmentKindAudio,
	})
	st.SaveResponseMapping(map[string]string{"submission_1_aa": "submission_1_aa"})

	rec := NewReconciler(st, &stubUploader{})
	report, err := rec.SyncAttachments(context.Background())
	if err != nil {
		t.Fatalf("SyncAttachments failed: %v", err)
	}
	if report.Uploaded != 0 || report.Failed != 1 {
		t.Errorf("report = %+v, want 0 uploaded, 1 failed", report)
	}
}

func TestSyncAttachmentsNothingPending(t *testing.T) {
	rec := NewReconciler(store.NewInMemoryStore(), &stubUploader{})
	report, err := rec.SyncAttachments(context.Background())
	if err != nil {
		t.Fatalf("empty queue should be a no-op, got %v", err)
	}
	if report.Uploaded != 0 || report.Failed != 0 {
		t.Errorf("report = %+v, want zeros", report)
	}
}
