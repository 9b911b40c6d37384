package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/formcourier/FormCourier/internal/models"
)

// JSON column helpers shared by the SQLite and Postgres backends. Empty
// collections persist as empty strings so nullable columns stay clean.

func marshalAnswers(answers map[int]models.Answer) (string, error) {
	if len(answers) == 0 {
		return "", nil
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers failed: %w", err)
	}
	return string(data), nil
}

func unmarshalAnswers(raw string) (map[int]models.Answer, error) {
	answers := make(map[int]models.Answer)
	if raw == "" {
		return answers, nil
	}
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers failed: %w", err)
	}
	return answers, nil
}

func marshalHistory(history []int) (string, error) {
	if len(history) == 0 {
		return "", nil
	}
	data, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("marshal history failed: %w", err)
	}
	return string(data), nil
}

func unmarshalHistory(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	var history []int
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("unmarshal history failed: %w", err)
	}
	return history, nil
}

func marshalQuestions(questions []models.Question) (string, error) {
	data, err := json.Marshal(questions)
	if err != nil {
		return "", fmt.Errorf("marshal questions failed: %w", err)
	}
	return string(data), nil
}

func unmarshalQuestions(raw string) ([]models.Question, error) {
	var questions []models.Question
	if raw == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions failed: %w", err)
	}
	return questions, nil
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanForm scans a Form from sql.Rows.
func scanForm(rows *sql.Rows) (models.Form, error) {
	var form models.Form
	var description, createdDate sql.NullString
	var questionsJSON string
	if err := rows.Scan(&form.FormID, &form.Title, &description, &createdDate, &questionsJSON); err != nil {
		return form, fmt.Errorf("scan form failed: %w", err)
	}
	form.Description = description.String
	form.CreatedDate = createdDate.String
	questions, err := unmarshalQuestions(questionsJSON)
	if err != nil {
		return form, err
	}
	form.Questions = questions
	return form, nil
}

// scanSubmission scans a Submission from sql.Rows.
func scanSubmission(rows *sql.Rows) (models.Submission, error) {
	var sub models.Submission
	var answersJSON, historyJSON, audioURI sql.NullString
	err := rows.Scan(&sub.LocalID, &sub.FormID, &answersJSON, &historyJSON,
		&sub.LastIndex, &sub.IsComplete, &audioURI, &sub.Timestamp)
	if err != nil {
		return sub, fmt.Errorf("scan submission failed: %w", err)
	}
	return fillSubmission(sub, answersJSON.String, historyJSON.String, audioURI.String)
}

// scanSubmissionRow scans a Submission from a single sql.Row.
func scanSubmissionRow(row *sql.Row) (models.Submission, error) {
	var sub models.Submission
	var answersJSON, historyJSON, audioURI sql.NullString
	err := row.Scan(&sub.LocalID, &sub.FormID, &answersJSON, &historyJSON,
		&sub.LastIndex, &sub.IsComplete, &audioURI, &sub.Timestamp)
	if err != nil {
		return sub, err
	}
	return fillSubmission(sub, answersJSON.String, historyJSON.String, audioURI.String)
}

func fillSubmission(sub models.Submission, answersJSON, historyJSON, audioURI string) (models.Submission, error) {
	answers, err := unmarshalAnswers(answersJSON)
	if err != nil {
		return sub, err
	}
	history, err := unmarshalHistory(historyJSON)
	if err != nil {
		return sub, err
	}
	sub.Answers = answers
	sub.TraversalHistory = history
	sub.AudioURI = audioURI
	return sub, nil
}

// scanAttachment scans an Attachment from sql.Rows.
func scanAttachment(rows *sql.Rows) (models.Attachment, error) {
	var att models.Attachment
	var questionTag sql.NullString
	err := rows.Scan(&att.LocalURI, &att.SubmissionLocalID, &att.FormID, &att.Kind,
		&questionTag, &att.PartNumber, &att.Synced, &att.Timestamp)
	if err != nil {
		return att, fmt.Errorf("scan attachment failed: %w", err)
	}
	att.QuestionTag = questionTag.String
	return att, nil
}
