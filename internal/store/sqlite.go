// Package store provides the local durable storage backends for FormCourier.
//
// This file implements the SQLite-backed store used on field devices.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/formcourier/FormCourier/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists the pending queue in a single database file under the
// client's state directory.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}

// SaveForm stores or replaces a downloaded form definition.
func (s *SQLiteStore) SaveForm(form models.Form) error {
	questionsJSON, err := marshalQuestions(form.Questions)
	if err != nil {
		slog.Error("SQLiteStore SaveForm marshal failed", "error", err, "formID", form.FormID)
		return err
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO forms (form_id, title, description, created_date, questions) VALUES (?, ?, ?, ?, ?)`,
		form.FormID, form.Title, form.Description, form.CreatedDate, questionsJSON)
	if err != nil {
		slog.Error("SQLiteStore SaveForm failed", "error", err, "formID", form.FormID)
		return fmt.Errorf("failed to insert form %d: %w", form.FormID, err)
	}
	slog.Debug("SQLiteStore SaveForm succeeded", "formID", form.FormID)
	return nil
}

// GetForms returns every downloaded form definition.
func (s *SQLiteStore) GetForms() ([]models.Form, error) {
	rows, err := s.db.Query(`SELECT form_id, title, description, created_date, questions FROM forms ORDER BY form_id`)
	if err != nil {
		slog.Error("SQLiteStore GetForms query failed", "error", err)
		return nil, fmt.Errorf("failed to query forms: %w", err)
	}
	defer rows.Close()

	var forms []models.Form
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			slog.Error("SQLiteStore GetForms scan failed", "error", err)
			return nil, err
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetForms rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate form rows: %w", err)
	}
	slog.Debug("SQLiteStore GetForms succeeded", "count", len(forms))
	return forms, nil
}

// GetForm retrieves one form definition, or (nil, nil) if not downloaded.
func (s *SQLiteStore) GetForm(formID int) (*models.Form, error) {
	row := s.db.QueryRow(`SELECT form_id, title, description, created_date, questions FROM forms WHERE form_id = ?`, formID)

	var form models.Form
	var description, createdDate sql.NullString
	var questionsJSON string
	err := row.Scan(&form.FormID, &form.Title, &description, &createdDate, &questionsJSON)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetForm not found", "formID", formID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetForm failed", "error", err, "formID", formID)
		return nil, err
	}
	form.Description = description.String
	form.CreatedDate = createdDate.String
	if form.Questions, err = unmarshalQuestions(questionsJSON); err != nil {
		slog.Error("SQLiteStore GetForm unmarshal failed", "error", err, "formID", formID)
		return nil, err
	}
	return &form, nil
}

// DeleteForm removes a downloaded form definition.
func (s *SQLiteStore) DeleteForm(formID int) error {
	_, err := s.db.Exec(`DELETE FROM forms WHERE form_id = ?`, formID)
	if err != nil {
		slog.Error("SQLiteStore DeleteForm failed", "error", err, "formID", formID)
		return err
	}
	slog.Debug("SQLiteStore DeleteForm succeeded", "formID", formID)
	return nil
}

// SaveSubmission stores or updates a submission snapshot.
func (s *SQLiteStore) SaveSubmission(sub models.Submission) error {
	answersJSON, err := marshalAnswers(sub.Answers)
	if err != nil {
		slog.Error("SQLiteStore SaveSubmission marshal answers failed", "error", err, "localID", sub.LocalID)
		return err
	}
	historyJSON, err := marshalHistory(sub.TraversalHistory)
	if err != nil {
		slog.Error("SQLiteStore SaveSubmission marshal history failed", "error", err, "localID", sub.LocalID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO submissions (local_id, form_id, answers, history, last_index, is_complete, audio_uri, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.LocalID, sub.FormID, nilIfEmpty(answersJSON), nilIfEmpty(historyJSON),
		sub.LastIndex, sub.IsComplete, nilIfEmpty(sub.AudioURI), sub.Timestamp, sub.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore SaveSubmission failed", "error", err, "localID", sub.LocalID)
		return fmt.Errorf("failed to save submission %s: %w", sub.LocalID, err)
	}
	slog.Debug("SQLiteStore SaveSubmission succeeded", "localID", sub.LocalID, "complete", sub.IsComplete)
	return nil
}

// GetSubmission retrieves one submission, or (nil, nil) if absent.
func (s *SQLiteStore) GetSubmission(localID string) (*models.Submission, error) {
	row := s.db.QueryRow(`
		SELECT local_id, form_id, answers, history, last_index, is_complete, audio_uri, created_at
		FROM submissions WHERE local_id = ?`, localID)
	sub, err := scanSubmissionRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSubmission not found", "localID", localID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSubmission failed", "error", err, "localID", localID)
		return nil, err
	}
	return &sub, nil
}

// GetSubmissions returns every queued submission, partial and complete.
func (s *SQLiteStore) GetSubmissions() ([]models.Submission, error) {
	return s.querySubmissions(`
		SELECT local_id, form_id, answers, history, last_index, is_complete, audio_uri, created_at
		FROM submissions ORDER BY created_at`)
}

// GetCompletedSubmissions returns the submissions eligible for response sync.
func (s *SQLiteStore) GetCompletedSubmissions() ([]models.Submission, error) {
	return s.querySubmissions(`
		SELECT local_id, form_id, answers, history, last_index, is_complete, audio_uri, created_at
		FROM submissions WHERE is_complete = 1 ORDER BY created_at`)
}

func (s *SQLiteStore) querySubmissions(query string) ([]models.Submission, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("SQLiteStore submission query failed", "error", err)
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			slog.Error("SQLiteStore submission scan failed", "error", err)
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore submission rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate submission rows: %w", err)
	}
	slog.Debug("SQLiteStore submissions queried", "count", len(subs))
	return subs, nil
}

// DeleteSubmission removes a submission from the pending queue.
func (s *SQLiteStore) DeleteSubmission(localID string) error {
	_, err := s.db.Exec(`DELETE FROM submissions WHERE local_id = ?`, localID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSubmission failed", "error", err, "localID", localID)
		return err
	}
	slog.Debug("SQLiteStore DeleteSubmission succeeded", "localID", localID)
	return nil
}

// MarkSubmissionIncomplete pulls a completed entry back out of the pending
// sync queue without discarding its answers.
func (s *SQLiteStore) MarkSubmissionIncomplete(localID string) error {
	_, err := s.db.Exec(`UPDATE submissions SET is_complete = 0 WHERE local_id = ?`, localID)
	if err != nil {
		slog.Error("SQLiteStore MarkSubmissionIncomplete failed", "error", err, "localID", localID)
		return err
	}
	slog.Debug("SQLiteStore MarkSubmissionIncomplete succeeded", "localID", localID)
	return nil
}

// AddAttachment records a media file awaiting upload.
func (s *SQLiteStore) AddAttachment(att models.Attachment) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO attachments (local_uri, submission_local_id, form_id, kind, question_tag, part_number, synced, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		att.LocalURI, att.SubmissionLocalID, att.FormID, att.Kind, att.QuestionTag, att.PartNumber, att.Synced, att.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AddAttachment failed", "error", err, "uri", att.LocalURI)
		return fmt.Errorf("failed to insert attachment %s: %w", att.LocalURI, err)
	}
	slog.Debug("SQLiteStore AddAttachment succeeded", "uri", att.LocalURI, "submission", att.SubmissionLocalID)
	return nil
}

// GetAttachments returns every attachment owned by a submission.
func (s *SQLiteStore) GetAttachments(submissionLocalID string) ([]models.Attachment, error) {
	return s.queryAttachments(`
		SELECT local_uri, submission_local_id, form_id, kind, question_tag, part_number, synced, created_at
		FROM attachments WHERE submission_local_id = ? ORDER BY part_number`, submissionLocalID)
}

// GetPendingAttachments returns every attachment not yet confirmed uploaded.
func (s *SQLiteStore) GetPendingAttachments() ([]models.Attachment, error) {
	return s.queryAttachments(`
		SELECT local_uri, submission_local_id, form_id, kind, question_tag, part_number, synced, created_at
		FROM attachments WHERE synced = 0 ORDER BY created_at`)
}

func (s *SQLiteStore) queryAttachments(query string, args ...interface{}) ([]models.Attachment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore attachment query failed", "error", err)
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var atts []models.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			slog.Error("SQLiteStore attachment scan failed", "error", err)
			return nil, err
		}
		atts = append(atts, att)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore attachment rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate attachment rows: %w", err)
	}
	return atts, nil
}

// MarkAttachmentSynced flags a single attachment as confirmed uploaded.
func (s *SQLiteStore) MarkAttachmentSynced(localURI string) error {
	_, err := s.db.Exec(`UPDATE attachments SET synced = 1 WHERE local_uri = ?`, localURI)
	if err != nil {
		slog.Error("SQLiteStore MarkAttachmentSynced failed", "error", err, "uri", localURI)
		return err
	}
	slog.Debug("SQLiteStore MarkAttachmentSynced succeeded", "uri", localURI)
	return nil
}

// SaveResponseMapping replaces the local-to-server response identifier
// mapping produced by the latest response sync.
func (s *SQLiteStore) SaveResponseMapping(mapping map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("SQLiteStore SaveResponseMapping begin failed", "error", err)
		return err
	}
	for localID, serverID := range mapping {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO response_mappings (local_id, server_id) VALUES (?, ?)`, localID, serverID); err != nil {
			tx.Rollback()
			slog.Error("SQLiteStore SaveResponseMapping insert failed", "error", err, "localID", localID)
			return fmt.Errorf("failed to save response mapping for %s: %w", localID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error("SQLiteStore SaveResponseMapping commit failed", "error", err)
		return err
	}
	slog.Debug("SQLiteStore SaveResponseMapping succeeded", "count", len(mapping))
	return nil
}

// GetResponseMapping returns the stored identifier mapping; an empty map
// means no successful response sync has happened yet.
func (s *SQLiteStore) GetResponseMapping() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT local_id, server_id FROM response_mappings`)
	if err != nil {
		slog.Error("SQLiteStore GetResponseMapping query failed", "error", err)
		return nil, fmt.Errorf("failed to query response mappings: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]string)
	for rows.Next() {
		var localID, serverID string
		if err := rows.Scan(&localID, &serverID); err != nil {
			slog.Error("SQLiteStore GetResponseMapping scan failed", "error", err)
			return nil, err
		}
		mapping[localID] = serverID
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetResponseMapping rows iteration failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore GetResponseMapping succeeded", "count", len(mapping))
	return mapping, nil
}

// ClearResponseMapping discards the identifier mapping (for tests and for
// explicitly resetting a device).
func (s *SQLiteStore) ClearResponseMapping() error {
	_, err := s.db.Exec(`DELETE FROM response_mappings`)
	if err != nil {
		slog.Error("SQLiteStore ClearResponseMapping failed", "error", err)
		return err
	}
	slog.Debug("SQLiteStore ClearResponseMapping succeeded")
	return nil
}
