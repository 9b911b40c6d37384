// Package sync implements the reconciler that pushes locally queued work to
// the central server. It runs two independent passes on explicit user
// action: the response pass uploads completed submissions as one batch, and
// the attachment pass uploads media files one by one, gated on the response
// identifier mapping the first pass establishes.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/formcourier/FormCourier/internal/models"
	"github.com/formcourier/FormCourier/internal/store"
)

// Timestamp layouts for the response wire payload.
const (
	SubmissionDateLayout = "2006-01-02"
	SubmissionTimeLayout = "15:04:05"
)

// ErrResponsesNotSynced is returned when the attachment pass runs before a
// successful response sync has established the identifier mapping. This is a
// hard ordering dependency: attachments cannot reference a server record
// until that record exists remotely.
var ErrResponsesNotSynced = errors.New("sync form data first")

// Uploader is the slice of the API client the reconciler needs.
type Uploader interface {
	SyncEntries(ctx context.Context, entries []models.SyncEntry) (models.SyncResult, error)
	UploadAttachment(ctx context.Context, att models.Attachment, responseID string, file io.Reader) error
}

// ResponseReport summarizes a response sync pass.
type ResponseReport struct {
	Synced int
}

// AttachmentReport summarizes an attachment sync pass. Failures stay pending
// for the next pass.
type AttachmentReport struct {
	Uploaded int
	Failed   int
}

// Reconciler transforms queued local state into wire payloads and rewrites
// sync status after server confirmation.
type Reconciler struct {
	store  store.Store
	client Uploader
}

// NewReconciler creates a reconciler over the given store and API client.
func NewReconciler(st store.Store, client Uploader) *Reconciler {
	slog.Debug("Creating sync reconciler")
	return &Reconciler{store: st, client: client}
}

// SyncResponses uploads every completed, unsynced submission in one batch.
// On success it records the local-to-server identifier mapping and removes
// the synced entries from the pending queue; incomplete submissions are
// untouched. On failure no local state changes, so the user can simply
// retry. Partial batch acceptance is not supported.
func (r *Reconciler) SyncResponses(ctx context.Context) (ResponseReport, error) {
	var report ResponseReport

	subs, err := r.store.GetCompletedSubmissions()
	if err != nil {
		slog.Error("SyncResponses failed to load queue", "error", err)
		return report, fmt.Errorf("failed to load pending submissions: %w", err)
	}
	if len(subs) == 0 {
		slog.Debug("SyncResponses: nothing to sync")
		return report, nil
	}

	now := time.Now()
	entries := make([]models.SyncEntry, 0, len(subs))
	for _, sub := range subs {
		entries = append(entries, models.SyncEntry{
			FormID:         sub.FormID,
			SubmissionDate: sub.Timestamp.Format(SubmissionDateLayout),
			SubmissionTime: sub.Timestamp.Format(SubmissionTimeLayout),
			Answers:        sub.Answers,
			LocalTimestamp: now.Format(time.RFC3339),
			SubmissionID:   sub.LocalID,
		})
	}

	result, err := r.client.SyncEntries(ctx, entries)
	if err != nil {
		slog.Error("SyncResponses batch failed", "error", err, "entries", len(entries))
		return report, err
	}

	// The server accepts the client-chosen submission identifier as the
	// durable key, so each local ID maps to itself.
	mapping := make(map[string]string, len(subs))
	for _, sub := range subs {
		mapping[sub.LocalID] = sub.LocalID
	}
	if err := r.store.SaveResponseMapping(mapping); err != nil {
		slog.Error("SyncResponses failed to save identifier mapping", "error", err)
		return report, fmt.Errorf("failed to save response mapping: %w", err)
	}
	for _, sub := range subs {
		if err := r.store.DeleteSubmission(sub.LocalID); err != nil {
			slog.Error("SyncResponses failed to dequeue submission", "error", err, "localID", sub.LocalID)
			return report, fmt.Errorf("failed to dequeue submission %s: %w", sub.LocalID, err)
		}
	}

	report.Synced = result.Count
	if report.Synced == 0 {
		report.Synced = len(entries)
	}
	slog.Info("SyncResponses succeeded", "synced", report.Synced)
	return report, nil
}

// SyncAttachments uploads pending media files, grouped by owning submission.
// It refuses to run until a response sync has established the identifier
// mapping. Each file succeeds or fails independently; only confirmed uploads
// are marked synced, and failures remain pending for the next pass.
func (r *Reconciler) SyncAttachments(ctx context.Context) (AttachmentReport, error) {
	var report AttachmentReport

	pending, err := r.store.GetPendingAttachments()
	if err != nil {
		slog.Error("SyncAttachments failed to load queue", "error", err)
		return report, fmt.Errorf("failed to load pending attachments: %w", err)
	}
	if len(pending) == 0 {
		slog.Debug("SyncAttachments: nothing to sync")
		return report, nil
	}

	mapping, err := r.store.GetResponseMapping()
	if err != nil {
		slog.Error("SyncAttachments failed to load identifier mapping", "error", err)
		return report, fmt.Errorf("failed to load response mapping: %w", err)
	}
	if len(mapping) == 0 {
		slog.Error("SyncAttachments refused: no response mapping present")
		return report, ErrResponsesNotSynced
	}

	groups := make(map[string][]models.Attachment)
	for _, att := range pending {
		groups[att.SubmissionLocalID] = append(groups[att.SubmissionLocalID], att)
	}
	submissionIDs := make([]string, 0, len(groups))
	for id := range groups {
		submissionIDs = append(submissionIDs, id)
	}
	sort.Strings(submissionIDs)

	for _, submissionID := range submissionIDs {
		files := groups[submissionID]
		responseID, ok := mapping[submissionID]
		if !ok {
			slog.Error("SyncAttachments: no response ID for submission", "submission", submissionID, "files", len(files))
			report.Failed += len(files)
			continue
		}
		for _, att := range files {
			if err := r.uploadOne(ctx, att, responseID); err != nil {
				slog.Error("SyncAttachments upload failed", "error", err, "uri", att.LocalURI)
				report.Failed++
				continue
			}
			if err := r.store.MarkAttachmentSynced(att.LocalURI); err != nil {
				slog.Error("SyncAttachments failed to mark attachment synced", "error", err, "uri", att.LocalURI)
				report.Failed++
				continue
			}
			report.Uploaded++
			slog.Debug("SyncAttachments progress", "uploaded", report.Uploaded, "total", len(pending))
		}
	}

	slog.Info("SyncAttachments finished", "uploaded", report.Uploaded, "failed", report.Failed)
	return report, nil
}

func (r *Reconciler) uploadOne(ctx context.Context, att models.Attachment, responseID string) error {
	file, err := os.Open(att.LocalURI)
	if err != nil {
		return fmt.Errorf("failed to open attachment file: %w", err)
	}
	defer file.Close()
	return r.client.UploadAttachment(ctx, att, responseID, file)
}
