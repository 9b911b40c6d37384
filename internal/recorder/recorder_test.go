package recorder

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestRecorderLifecycle(t *testing.T) {
	r := New(t.TempDir())

	if r.State() != StateIdle {
		t.Fatalf("new recorder should be idle, got %s", r.State())
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("stopping an idle recorder should fail with ErrNotRecording, got %v", err)
	}

	if err := r.Start(3, "submission_1_aa"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !r.IsRecording() {
		t.Errorf("recorder should report recording after Start")
	}
	if _, err := r.Append([]byte("audio-bytes")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	uri, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if r.State() != StateStopped {
		t.Errorf("state after Stop = %s, want stopped", r.State())
	}
	if uri != r.URI() {
		t.Errorf("Stop URI %q should match URI() %q", uri, r.URI())
	}

	data, err := os.ReadFile(uri)
	if err != nil {
		t.Fatalf("reading captured file: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("captured file content = %q", data)
	}
}

func TestStartWhileRecordingRejected(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Start(3, "submission_1_aa"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(3, "submission_1_aa"); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start should fail with ErrAlreadyRecording, got %v", err)
	}
	// The original capture must still be live.
	if !r.IsRecording() {
		t.Errorf("rejected Start must not disturb the active recording")
	}
	if _, err := r.Stop(); err != nil {
		t.Errorf("Stop after rejected Start failed: %v", err)
	}
}

func TestRestartAfterStop(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Start(3, "submission_1_aa"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	first, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if err := r.Start(3, "submission_1_aa"); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	second, err := r.Stop()
	if err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if first == second {
		t.Errorf("each capture should get its own file")
	}
}

func TestRecordingFileName(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Start(12, "submission_99_zz"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	uri, _ := r.Stop()

	if !strings.Contains(uri, "form_12_submission_submission_99_zz_") {
		t.Errorf("capture file %q should encode form and submission", uri)
	}
	if !strings.HasSuffix(uri, ".m4a") {
		t.Errorf("capture file %q should use the .m4a extension", uri)
	}
}

func TestAppendWhenNotRecording(t *testing.T) {
	r := New(t.TempDir())
	if _, err := r.Append([]byte("x")); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Append while idle should fail with ErrNotRecording, got %v", err)
	}
}
