// Package session implements the submission lifecycle manager: it creates,
// persists, resumes, and finalizes submissions, and owns the exclusive audio
// recorder for the active traversal. Only one submission may be in progress
// at a time; any number of completed, unsynced submissions may coexist in the
// pending queue.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/formcourier/FormCourier/internal/flow"
	"github.com/formcourier/FormCourier/internal/models"
	"github.com/formcourier/FormCourier/internal/recorder"
	"github.com/formcourier/FormCourier/internal/store"
)

// LocalIDFormat combines a millisecond timestamp with a short random
// component so identifiers stay unique across devices.
const LocalIDFormat = "submission_%d_%s"

var (
	ErrSessionActive     = errors.New("another submission is already in progress")
	ErrNoActiveSession   = errors.New("no submission in progress")
	ErrUnknownSubmission = errors.New("submission not found in local store")
	ErrCannotSubmit      = errors.New("terminal question blocks submission")
)

// Session is one in-progress traversal: the working submission, its walker,
// and its answer store.
type Session struct {
	form       models.Form
	submission models.Submission
	walker     *flow.Walker
}

// Form returns the form being filled.
func (s *Session) Form() models.Form {
	return s.form
}

// LocalID returns the durable client-generated submission identifier.
func (s *Session) LocalID() string {
	return s.submission.LocalID
}

// Walker exposes the traversal engine for navigation and guards.
func (s *Session) Walker() *flow.Walker {
	return s.walker
}

// Answer records a response for the question currently being asked. Checkbox
// questions toggle the value in and out of the selection.
func (s *Session) Answer(value string) {
	s.walker.Answers().Set(s.walker.CurrentQuestion(), value)
}

// CurrentAnswer returns the recorded answer for the current question.
func (s *Session) CurrentAnswer() (models.Answer, bool) {
	return s.walker.Answers().Get(s.walker.Current())
}

// snapshot builds the persistable submission state. lastIndex is the resume
// point; completed submissions pin it to the terminal question.
func (s *Session) snapshot(lastIndex int, complete bool, audioURI string) models.Submission {
	sub := s.submission
	sub.Answers = s.walker.Answers().Snapshot()
	sub.TraversalHistory = s.walker.History()
	sub.LastIndex = lastIndex
	sub.IsComplete = complete
	if audioURI != "" {
		sub.AudioURI = audioURI
	}
	sub.Timestamp = time.Now()
	return sub
}

// Manager coordinates session lifecycle against the local store and the
// audio recorder.
type Manager struct {
	store  store.Store
	rec    *recorder.Recorder
	active *Session
}

// NewManager creates a lifecycle manager backed by the given store and
// recorder.
func NewManager(st store.Store, rec *recorder.Recorder) *Manager {
	slog.Debug("Creating session manager")
	return &Manager{store: st, rec: rec}
}

// Active returns the session in progress, or nil.
func (m *Manager) Active() *Session {
	return m.active
}

// NewLocalID generates a durable submission identifier from the current time
// plus a uniqueness component.
func NewLocalID() string {
	return fmt.Sprintf(LocalIDFormat, time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Start begins a fresh submission for the given form at its first question.
func (m *Manager) Start(form models.Form) (*Session, error) {
	if m.active != nil {
		slog.Error("Session start rejected, session already active", "active", m.active.LocalID())
		return nil, ErrSessionActive
	}
	if err := form.Validate(); err != nil {
		slog.Error("Session start rejected, invalid form", "error", err, "formID", form.FormID)
		return nil, fmt.Errorf("invalid form %d: %w", form.FormID, err)
	}

	localID := NewLocalID()
	s := &Session{
		form: form,
		submission: models.Submission{
			LocalID:   localID,
			FormID:    form.FormID,
			Timestamp: time.Now(),
		},
		walker: flow.NewWalker(form.Questions, flow.NewAnswerStore()),
	}
	m.active = s
	slog.Info("Session started", "localID", localID, "formID", form.FormID)
	return s, nil
}

// Resume rehydrates a previously saved, possibly incomplete submission,
// restoring the traversal position, history, and answers exactly as saved.
func (m *Manager) Resume(localID string) (*Session, error) {
	if m.active != nil {
		slog.Error("Session resume rejected, session already active", "active", m.active.LocalID())
		return nil, ErrSessionActive
	}
	sub, err := m.store.GetSubmission(localID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission %s: %w", localID, err)
	}
	if sub == nil {
		return nil, ErrUnknownSubmission
	}
	form, err := m.store.GetForm(sub.FormID)
	if err != nil {
		return nil, fmt.Errorf("failed to load form %d: %w", sub.FormID, err)
	}
	if form == nil {
		return nil, fmt.Errorf("form %d for submission %s: %w", sub.FormID, localID, ErrUnknownSubmission)
	}

	answers := flow.RestoreAnswerStore(sub.Answers)
	s := &Session{
		form:       *form,
		submission: *sub,
		walker:     flow.ResumeWalker(form.Questions, answers, sub.LastIndex, sub.TraversalHistory),
	}
	m.active = s
	slog.Info("Session resumed", "localID", localID, "formID", sub.FormID, "lastIndex", sub.LastIndex)
	return s, nil
}

// SaveProgress persists the active session without marking it complete and
// ends the session. A recording in progress is stopped and queued as a
// numbered part so a later resume starts a fresh part.
func (m *Manager) SaveProgress() error {
	if m.active == nil {
		return ErrNoActiveSession
	}
	audioURI, err := m.finishRecording(true)
	if err != nil {
		return err
	}

	s := m.active
	sub := s.snapshot(s.walker.Current(), false, audioURI)
	if err := m.store.SaveSubmission(sub); err != nil {
		slog.Error("SaveProgress failed", "error", err, "localID", s.LocalID())
		return fmt.Errorf("failed to save progress for %s: %w", s.LocalID(), err)
	}
	s.submission = sub
	m.active = nil
	slog.Info("Session progress saved", "localID", sub.LocalID, "lastIndex", sub.LastIndex, "answers", len(sub.Answers))
	return nil
}

// Complete finalizes the active session. The terminal question must pass the
// submit guard. A recording still running is stopped and queued as the full
// recording. A completed submission is never mutated again except by the
// sync reconciler.
func (m *Manager) Complete() error {
	if m.active == nil {
		return ErrNoActiveSession
	}
	s := m.active
	if !s.walker.CanSubmit() {
		slog.Debug("Complete blocked by submit guard", "localID", s.LocalID(), "index", s.walker.Current())
		return ErrCannotSubmit
	}
	audioURI, err := m.finishRecording(false)
	if err != nil {
		return err
	}

	sub := s.snapshot(len(s.form.Questions)-1, true, audioURI)
	if err := m.store.SaveSubmission(sub); err != nil {
		slog.Error("Complete failed", "error", err, "localID", s.LocalID())
		return fmt.Errorf("failed to save completed submission %s: %w", s.LocalID(), err)
	}
	s.submission = sub
	m.active = nil
	slog.Info("Session completed", "localID", sub.LocalID, "formID", sub.FormID)
	return nil
}

// Abandon discards the active session without persisting anything.
func (m *Manager) Abandon() {
	if m.active == nil {
		return
	}
	if m.rec != nil && m.rec.IsRecording() {
		if _, err := m.rec.Stop(); err != nil {
			slog.Error("Failed to stop recording on abandon", "error", err)
		}
	}
	slog.Info("Session abandoned", "localID", m.active.LocalID())
	m.active = nil
}

// StartRecording begins audio capture for the active session.
func (m *Manager) StartRecording() error {
	if m.active == nil {
		return ErrNoActiveSession
	}
	if m.rec == nil {
		return recorder.ErrNotRecording
	}
	return m.rec.Start(m.active.form.FormID, m.active.LocalID())
}

// StopRecording ends audio capture and queues the captured file as a
// numbered part attachment.
func (m *Manager) StopRecording() (string, error) {
	if m.active == nil {
		return "", ErrNoActiveSession
	}
	uri, err := m.finishRecording(true)
	if err != nil {
		return "", err
	}
	if uri == "" {
		return "", recorder.ErrNotRecording
	}
	return uri, nil
}

// finishRecording stops an in-progress capture and queues the attachment.
// Partial saves get a monotonically increasing part number; a recording that
// ran through submit is tagged as the full recording with no part number.
// Returns an empty URI when nothing was recording.
func (m *Manager) finishRecording(partial bool) (string, error) {
	if m.rec == nil || !m.rec.IsRecording() {
		return "", nil
	}
	uri, err := m.rec.Stop()
	if err != nil {
		slog.Error("Failed to stop recording", "error", err)
		return "", fmt.Errorf("failed to stop recording: %w", err)
	}

	s := m.active
	att := models.Attachment{
		LocalURI:          uri,
		FormID:            s.form.FormID,
		SubmissionLocalID: s.LocalID(),
		Kind:              models.AttachmentKindAudio,
		QuestionTag:       models.FullRecordingTag,
		Timestamp:         time.Now(),
	}
	if partial {
		existing, err := m.store.GetAttachments(s.LocalID())
		if err != nil {
			return "", fmt.Errorf("failed to count recording parts for %s: %w", s.LocalID(), err)
		}
		parts := 0
		for _, e := range existing {
			if e.Kind == models.AttachmentKindAudio {
				parts++
			}
		}
		att.PartNumber = parts + 1
		att.QuestionTag = att.UploadTag()
	}
	if err := m.store.AddAttachment(att); err != nil {
		slog.Error("Failed to queue attachment", "error", err, "uri", uri)
		return "", fmt.Errorf("failed to queue attachment %s: %w", uri, err)
	}
	slog.Info("Attachment queued", "uri", uri, "part", att.PartNumber, "submission", s.LocalID())
	return uri, nil
}
