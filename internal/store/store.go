// Package store provides the local durable storage backends for FormCourier.
//
// The client queues submissions and attachments here while offline; the sync
// reconciler reads completed work from it and rewrites sync status after the
// server confirms acceptance. SQLite is the default on-device backend and
// Postgres is available for shared base-camp stations; an in-memory store
// backs the tests.
package store

import "github.com/formcourier/FormCourier/internal/models"

// Store is the persistence contract required by the session manager and the
// sync reconciler. Lookups for absent records return (nil, nil); only I/O
// problems surface as errors.
type Store interface {
	// Downloaded form definitions ("forms to fill").
	SaveForm(form models.Form) error
	GetForms() ([]models.Form, error)
	GetForm(formID int) (*models.Form, error)
	DeleteForm(formID int) error

	// Pending submissions, complete and partial.
	SaveSubmission(sub models.Submission) error
	GetSubmission(localID string) (*models.Submission, error)
	GetSubmissions() ([]models.Submission, error)
	GetCompletedSubmissions() ([]models.Submission, error)
	DeleteSubmission(localID string) error
	MarkSubmissionIncomplete(localID string) error

	// Media attachments awaiting upload.
	AddAttachment(att models.Attachment) error
	GetAttachments(submissionLocalID string) ([]models.Attachment, error)
	GetPendingAttachments() ([]models.Attachment, error)
	MarkAttachmentSynced(localURI string) error

	// Ephemeral local-to-server response identifier mapping, rebuilt per
	// sync cycle.
	SaveResponseMapping(mapping map[string]string) error
	GetResponseMapping() (map[string]string, error)
	ClearResponseMapping() error

	Close() error
}
