// Package store provides the local durable storage backends for FormCourier.
//
// This file implements a Postgres-backed store for shared base-camp stations
// where several field devices dock to one database.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/formcourier/FormCourier/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}

// SaveForm stores or replaces a downloaded form definition.
func (s *PostgresStore) SaveForm(form models.Form) error {
	questionsJSON, err := marshalQuestions(form.Questions)
	if err != nil {
		slog.Error("PostgresStore SaveForm marshal failed", "error", err, "formID", form.FormID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO forms (form_id, title, description, created_date, questions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (form_id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description,
			created_date = EXCLUDED.created_date, questions = EXCLUDED.questions`,
		form.FormID, form.Title, form.Description, form.CreatedDate, questionsJSON)
	if err != nil {
		slog.Error("PostgresStore SaveForm failed", "error", err, "formID", form.FormID)
		return fmt.Errorf("failed to insert form %d: %w", form.FormID, err)
	}
	slog.Debug("PostgresStore SaveForm succeeded", "formID", form.FormID)
	return nil
}

// GetForms returns every downloaded form definition.
func (s *PostgresStore) GetForms() ([]models.Form, error) {
	rows, err := s.db.Query(`SELECT form_id, title, description, created_date, questions FROM forms ORDER BY form_id`)
	if err != nil {
		slog.Error("PostgresStore GetForms query failed", "error", err)
		return nil, fmt.Errorf("failed to query forms: %w", err)
	}
	defer rows.Close()

	var forms []models.Form
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			slog.Error("PostgresStore GetForms scan failed", "error", err)
			return nil, err
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetForms rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate form rows: %w", err)
	}
	slog.Debug("PostgresStore GetForms succeeded", "count", len(forms))
	return forms, nil
}

// GetForm retrieves one form definition, or (nil, nil) if not downloaded.
func (s *PostgresStore) GetForm(formID int) (*models.Form, error) {
	row := s.db.QueryRow(`SELECT form_id, title, description, created_date, questions FROM forms WHERE form_id = $1`, formID)

	var form models.Form
	var description, createdDate sql.NullString
	var questionsJSON string
	err := row.Scan(&form.FormID, &form.Title, &description, &createdDate, &questionsJSON)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetForm not found", "formID", formID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetForm failed", "error", err, "formID", formID)
		return nil, err
	}
	form.Description = description.String
	form.CreatedDate = createdDate.String
	if form.Questions, err = unmarshalQuestions(questionsJSON); err != nil {
		slog.Error("PostgresStore GetForm unmarshal failed", "error", err, "formID", formID)
		return nil, err
	}
	return &form, nil
}

// DeleteForm removes a downloaded form definition.
func (s *PostgresStore) DeleteForm(formID int) error {
	_, err := s.db.Exec(`DELETE FROM forms WHERE form_id = $1`, formID)
	if err != nil {
		slog.Error("PostgresStore DeleteForm failed", "error", err, "formID", formID)
		return err
	}
	return nil
}

// SaveSubmission stores or updates a submission snapshot.
func (s *PostgresStore) SaveSubmission(sub models.Submission) error {
	answersJSON, err := marshalAnswers(sub.Answers)
	if err != nil {
		slog.Error("PostgresStore SaveSubmission marshal answers failed", "error", err, "localID", sub.LocalID)
		return err
	}
	historyJSON, err := marshalHistory(sub.TraversalHistory)
	if err != nil {
		slog.Error("PostgresStore SaveSubmission marshal history failed", "error", err, "localID", sub.LocalID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO submissions (local_id, form_id, answers, history, last_index, is_complete, audio_uri, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (local_id) DO UPDATE SET
			answers = EXCLUDED.answers, history = EXCLUDED.history,
			last_index = EXCLUDED.last_index, is_complete = EXCLUDED.is_complete,
			audio_uri = EXCLUDED.audio_uri, updated_at = EXCLUDED.updated_at`,
		sub.LocalID, sub.FormID, nilIfEmpty(answersJSON), nilIfEmpty(historyJSON),
		sub.LastIndex, sub.IsComplete, nilIfEmpty(sub.AudioURI), sub.Timestamp, sub.Timestamp)
	if err != nil {
		slog.Error("PostgresStore SaveSubmission failed", "error", err, "localID", sub.LocalID)
		return fmt.Errorf("failed to save submission %s: %w", sub.LocalID, err)
	}
	slog.Debug("PostgresStore SaveSubmission succeeded", "localID", sub.LocalID, "complete", sub.IsComplete)
	return nil
}

// GetSubmission retrieves one submission, or (nil, nil) if absent.
func (s *PostgresStore) GetSubmission(localID string) (*models.Submission, error) {
	row := s.db.QueryRow(`
		SELECT local_id, form_id, answers, history, last_index, is_complete, audio_uri, created_at
		FROM submissions WHERE local_id = $1`, localID)
	sub, err := scanSubmissionRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSubmission not found", "localID", localID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSubmission failed", "error", err, "localID", localID)
		return nil, err
	}
	return &sub, nil
}

// GetSubmissions returns every queued submission, partial and complete.
func (s *PostgresStore) GetSubmissions() ([]models.Submission, error) {
	return s.querySubmissions(`
		SELECT local_id, form_id, answers, history, last_index, is_complete, audio_uri, created_at
		FROM submissions ORDER BY created_at`)
}

// GetCompletedSubmissions returns the submissions eligible for response sync.
func (s *PostgresStore) GetCompletedSubmissions() ([]models.Submission, error) {
	return s.querySubmissions(`
		SELECT local_id, form_id, answers, history, last_index, is_complete, audio_uri, created_at
		FROM submissions WHERE is_complete ORDER BY created_at`)
}

func (s *PostgresStore) querySubmissions(query string) ([]models.Submission, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("PostgresStore submission query failed", "error", err)
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			slog.Error("PostgresStore submission scan failed", "error", err)
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore submission rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate submission rows: %w", err)
	}
	return subs, nil
}

// DeleteSubmission removes a submission from the pending queue.
func (s *PostgresStore) DeleteSubmission(localID string) error {
	_, err := s.db.Exec(`DELETE FROM submissions WHERE local_id = $1`, localID)
	if err != nil {
		slog.Error("PostgresStore DeleteSubmission failed", "error", err, "localID", localID)
		return err
	}
	return nil
}

// MarkSubmissionIncomplete pulls a completed entry back out of the pending
// sync queue without discarding its answers.
func (s *PostgresStore) MarkSubmissionIncomplete(localID string) error {
	_, err := s.db.Exec(`UPDATE submissions SET is_complete = FALSE WHERE local_id = $1`, localID)
	if err != nil {
		slog.Error("PostgresStore MarkSubmissionIncomplete failed", "error", err, "localID", localID)
		return err
	}
	return nil
}

// AddAttachment records a media file awaiting upload.
func (s *PostgresStore) AddAttachment(att models.Attachment) error {
	_, err := s.db.Exec(`
		INSERT INTO attachments (local_uri, submission_local_id, form_id, kind, question_tag, part_number, synced, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (local_uri) DO UPDATE SET synced = EXCLUDED.synced`,
		att.LocalURI, att.SubmissionLocalID, att.FormID, att.Kind, att.QuestionTag, att.PartNumber, att.Synced, att.Timestamp)
	if err != nil {
		slog.Error("PostgresStore AddAttachment failed", "error", err, "uri", att.LocalURI)
		return fmt.Errorf("failed to insert attachment %s: %w", att.LocalURI, err)
	}
	return nil
}

// GetAttachments returns every attachment owned by a submission.
func (s *PostgresStore) GetAttachments(submissionLocalID string) ([]models.Attachment, error) {
	return s.queryAttachments(`
		SELECT local_uri, submission_local_id, form_id, kind, question_tag, part_number, synced, created_at
		FROM attachments WHERE submission_local_id = $1 ORDER BY part_number`, submissionLocalID)
}

// GetPendingAttachments returns every attachment not yet confirmed uploaded.
func (s *PostgresStore) GetPendingAttachments() ([]models.Attachment, error) {
	return s.queryAttachments(`
		SELECT local_uri, submission_local_id, form_id, kind, question_tag, part_number, synced, created_at
		FROM attachments WHERE NOT synced ORDER BY created_at`)
}

func (s *PostgresStore) queryAttachments(query string, args ...interface{}) ([]models.Attachment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore attachment query failed", "error", err)
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var atts []models.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			slog.Error("PostgresStore attachment scan failed", "error", err)
			return nil, err
		}
		atts = append(atts, att)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore attachment rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate attachment rows: %w", err)
	}
	return atts, nil
}

// MarkAttachmentSynced flags a single attachment as confirmed uploaded.
func (s *PostgresStore) MarkAttachmentSynced(localURI string) error {
	_, err := s.db.Exec(`UPDATE attachments SET synced = TRUE WHERE local_uri = $1`, localURI)
	if err != nil {
		slog.Error("PostgresStore MarkAttachmentSynced failed", "error", err, "uri", localURI)
		return err
	}
	return nil
}

// SaveResponseMapping replaces the local-to-server response identifier
// mapping produced by the latest response sync.
func (s *PostgresStore) SaveResponseMapping(mapping map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("PostgresStore SaveResponseMapping begin failed", "error", err)
		return err
	}
	for localID, serverID := range mapping {
		if _, err := tx.Exec(`
			INSERT INTO response_mappings (local_id, server_id) VALUES ($1, $2)
			ON CONFLICT (local_id) DO UPDATE SET server_id = EXCLUDED.server_id`, localID, serverID); err != nil {
			tx.Rollback()
			slog.Error("PostgresStore SaveResponseMapping insert failed", "error", err, "localID", localID)
			return fmt.Errorf("failed to save response mapping for %s: %w", localID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error("PostgresStore SaveResponseMapping commit failed", "error", err)
		return err
	}
	slog.Debug("PostgresStore SaveResponseMapping succeeded", "count", len(mapping))
	return nil
}

// GetResponseMapping returns the stored identifier mapping; an empty map
// means no successful response sync has happened yet.
func (s *PostgresStore) GetResponseMapping() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT local_id, server_id FROM response_mappings`)
	if err != nil {
		slog.Error("PostgresStore GetResponseMapping query failed", "error", err)
		return nil, fmt.Errorf("failed to query response mappings: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]string)
	for rows.Next() {
		var localID, serverID string
		if err := rows.Scan(&localID, &serverID); err != nil {
			slog.Error("PostgresStore GetResponseMapping scan failed", "error", err)
			return nil, err
		}
		mapping[localID] = serverID
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetResponseMapping rows iteration failed", "error", err)
		return nil, err
	}
	return mapping, nil
}

// ClearResponseMapping discards the identifier mapping.
func (s *PostgresStore) ClearResponseMapping() error {
	_, err := s.db.Exec(`DELETE FROM response_mappings`)
	if err != nil {
		slog.Error("PostgresStore ClearResponseMapping failed", "error", err)
		return err
	}
	return nil
}
