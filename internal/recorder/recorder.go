// Package recorder models the audio recording resource owned by an active
// form session. The recorder is exclusively held and moves through a three
// state lifecycle: idle, recording, and stopped-with-uri. Starting while a
// recording is in progress is rejected rather than silently restarted.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// State identifies where the recorder is in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopped   State = "stopped"
)

// RecordingFileFormat names captured files by owning form and submission.
const RecordingFileFormat = "form_%d_submission_%s_%d.m4a"

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// Recorder captures one audio stream at a time into the client's state
// directory. After Stop the captured file's URI is available until the next
// Start resets the lifecycle.
type Recorder struct {
	dir     string
	state   State
	file    *os.File
	uri     string
	started time.Time
	stopped time.Time
}

// New creates an idle recorder that writes captured audio under dir.
func New(dir string) *Recorder {
	return &Recorder{dir: dir, state: StateIdle}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	return r.state
}

// IsRecording reports whether a capture is in progress.
func (r *Recorder) IsRecording() bool {
	return r.state == StateRecording
}

// URI returns the captured file location; empty until a recording has been
// stopped.
func (r *Recorder) URI() string {
	return r.uri
}

// Elapsed returns how long the current or finished recording ran.
func (r *Recorder) Elapsed() time.Duration {
	switch r.state {
	case StateRecording:
		return time.Since(r.started)
	case StateStopped:
		return r.stopped.Sub(r.started)
	default:
		return 0
	}
}

// Start opens a new capture file named after the owning form and submission.
// Returns ErrAlreadyRecording if a capture is already in progress.
func (r *Recorder) Start(formID int, submissionID string) error {
	if r.state == StateRecording {
		slog.Error("Recorder start rejected, already recording", "uri", r.uri)
		return ErrAlreadyRecording
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		slog.Error("Recorder failed to create directory", "error", err, "dir", r.dir)
		return fmt.Errorf("failed to create recording directory: %w", err)
	}
	name := fmt.Sprintf(RecordingFileFormat, formID, submissionID, time.Now().UnixMilli())
	path := filepath.Join(r.dir, name)
	file, err := os.Create(path)
	if err != nil {
		slog.Error("Recorder failed to create file", "error", err, "path", path)
		return fmt.Errorf("failed to create recording file: %w", err)
	}
	r.file = file
	r.uri = path
	r.state = StateRecording
	r.started = time.Now()
	slog.Info("Recording started", "uri", path, "formID", formID, "submissionID", submissionID)
	return nil
}

// Append writes captured audio data to the open recording file.
func (r *Recorder) Append(p []byte) (int, error) {
	if r.state != StateRecording {
		return 0, ErrNotRecording
	}
	return r.file.Write(p)
}

// Stop closes the capture file and returns its URI. Returns ErrNotRecording
// when no capture is in progress.
func (r *Recorder) Stop() (string, error) {
	if r.state != StateRecording {
		return "", ErrNotRecording
	}
	if err := r.file.Close(); err != nil {
		slog.Error("Recorder failed to close file", "error", err, "uri", r.uri)
		return "", fmt.Errorf("failed to close recording file: %w", err)
	}
	r.file = nil
	r.state = StateStopped
	r.stopped = time.Now()
	slog.Info("Recording stopped", "uri", r.uri, "elapsed", r.Elapsed())
	return r.uri, nil
}
