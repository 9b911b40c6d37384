// Package store provides the local durable storage backends for FormCourier.
//
// This file implements a simple in-memory store used by tests. The client is
// single-threaded, so no locking is required.
package store

import (
	"github.com/formcourier/FormCourier/internal/models"
)

// InMemoryStore keeps everything in maps; snapshots are deep-copied on the
// way in and out so callers cannot alias stored state.
type InMemoryStore struct {
	forms       map[int]models.Form
	submissions map[string]models.Submission
	order       []string // submission insertion order
	attachments []models.Attachment
	mapping     map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		forms:       make(map[int]models.Form),
		submissions: make(map[string]models.Submission),
		mapping:     make(map[string]string),
	}
}

func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) SaveForm(form models.Form) error {
	s.forms[form.FormID] = form
	return nil
}

func (s *InMemoryStore) GetForms() ([]models.Form, error) {
	var forms []models.Form
	for _, f := range s.forms {
		forms = append(forms, f)
	}
	return forms, nil
}

func (s *InMemoryStore) GetForm(formID int) (*models.Form, error) {
	f, ok := s.forms[formID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *InMemoryStore) DeleteForm(formID int) error {
	delete(s.forms, formID)
	return nil
}

func (s *InMemoryStore) SaveSubmission(sub models.Submission) error {
	if _, exists := s.submissions[sub.LocalID]; !exists {
		s.order = append(s.order, sub.LocalID)
	}
	s.submissions[sub.LocalID] = sub.Clone()
	return nil
}

func (s *InMemoryStore) GetSubmission(localID string) (*models.Submission, error) {
	sub, ok := s.submissions[localID]
	if !ok {
		return nil, nil
	}
	out := sub.Clone()
	return &out, nil
}

func (s *InMemoryStore) GetSubmissions() ([]models.Submission, error) {
	var subs []models.Submission
	for _, id := range s.order {
		if sub, ok := s.submissions[id]; ok {
			subs = append(subs, sub.Clone())
		}
	}
	return subs, nil
}

func (s *InMemoryStore) GetCompletedSubmissions() ([]models.Submission, error) {
	var subs []models.Submission
	for _, id := range s.order {
		if sub, ok := s.submissions[id]; ok && sub.IsComplete {
			subs = append(subs, sub.Clone())
		}
	}
	return subs, nil
}

func (s *InMemoryStore) DeleteSubmission(localID string) error {
	delete(s.submissions, localID)
	for i, id := range s.order {
		if id == localID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) MarkSubmissionIncomplete(localID string) error {
	if sub, ok := s.submissions[localID]; ok {
		sub.IsComplete = false
		s.submissions[localID] = sub
	}
	return nil
}

func (s *InMemoryStore) AddAttachment(att models.Attachment) error {
	for i, existing := range s.attachments {
		if existing.LocalURI == att.LocalURI {
			s.attachments[i] = att
			return nil
		}
	}
	s.attachments = append(s.attachments, att)
	return nil
}

func (s *InMemoryStore) GetAttachments(submissionLocalID string) ([]models.Attachment, error) {
	var atts []models.Attachment
	for _, att := range s.attachments {
		if att.SubmissionLocalID == submissionLocalID {
			atts = append(atts, att)
		}
	}
	return atts, nil
}

func (s *InMemoryStore) GetPendingAttachments() ([]models.Attachment, error) {
	var atts []models.Attachment
	for _, att := range s.attachments {
		if !att.Synced {
			atts = append(atts, att)
		}
	}
	return atts, nil
}

func (s *InMemoryStore) MarkAttachmentSynced(localURI string) error {
	for i, att := range s.attachments {
		if att.LocalURI == localURI {
			s.attachments[i].Synced = true
		}
	}
	return nil
}

func (s *InMemoryStore) SaveResponseMapping(mapping map[string]string) error {
	for localID, serverID := range mapping {
		s.mapping[localID] = serverID
	}
	return nil
}

func (s *InMemoryStore) GetResponseMapping() (map[string]string, error) {
	out := make(map[string]string, len(s.mapping))
	for k, v := range s.mapping {
		out[k] = v
	}
	return out, nil
}

func (s *InMemoryStore) ClearResponseMapping() error {
	s.mapping = make(map[string]string)
	return nil
}
