package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/BTreeMap/AgentForm/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// encodeAnswers serializes answers for the answers_json column.
func encodeAnswers(answers []models.Answer) (string, error) {
	if answers == nil {
		answers = []models.Answer{}
	}
	b, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("failed to encode answers: %w", err)
	}
	return string(b), nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSubmission scans a submission row selected with submissionColumns.
func scanSubmission(row rowScanner) (models.Submission, error) {
	var sub models.Submission
	var answersJSON string
	var prompt sql.NullString
	if err := row.Scan(&sub.ID, &sub.Questionnaire, &answersJSON, &prompt, &sub.CreatedAt); err != nil {
		return sub, err
	}
	if err := json.Unmarshal([]byte(answersJSON), &sub.Answers); err != nil {
		return sub, fmt.Errorf("failed to decode answers for submission %s: %w", sub.ID, err)
	}
	sub.GeneratedPrompt = prompt.String
	return sub, nil
}

// scanReceipt scans a receipt row selected with receiptColumns.
func scanReceipt(row rowScanner) (models.GenerationReceipt, error) {
	var r models.GenerationReceipt
	var status string
	err := row.Scan(&r.ID, &r.Framework, &r.AgentName, &status, &r.Fragments, &r.Bytes, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return r, fmt.Errorf("scan receipt failed: %w", err)
	}
	r.Status = models.GenerationStatus(status)
	return r, nil
}

const (
	submissionColumns = `id, questionnaire, answers_json, generated_prompt, created_at`
	receiptColumns    = `id, framework, agent_name, status, fragments, bytes, started_at, finished_at`
)

// collectSubmissions drains rows into a slice.
func collectSubmissions(rows *sql.Rows) ([]models.Submission, error) {
	defer rows.Close()
	var out []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submission rows: %w", err)
	}
	return out, nil
}

// collectReceipts drains rows into a slice.
func collectReceipts(rows *sql.Rows) ([]models.GenerationReceipt, error) {
	defer rows.Close()
	var out []models.GenerationReceipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return out, nil
}
