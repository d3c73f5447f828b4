package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

var errNotFound = shared.ErrRecordNotFound

// SubmissionRepository implements models.Repository[*models.Submission] for the submit ledger.
type SubmissionRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Submission] = (*SubmissionRepository)(nil)

// NewSubmissionRepository creates a new SubmissionRepository with the given database connection
func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, sequence, form, endpoint, status, remote_id, error_message, field_errors,
	bytes_sent, started_at, completed_at, created_at, updated_at, deleted_at`

// Create inserts s with a generated ID and sequence.
func (r *SubmissionRepository) Create(s *models.Submission) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "submissions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	s.SetID(id)
	s.SetSequence(sequence)

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		s.Form(),
		s.Endpoint(),
		string(s.Status()),
		nullString(s.RemoteID()),
		nullString(s.ErrorMessage()),
		s.FieldErrors(),
		s.BytesSent(),
		s.StartedAt(),
		s.CompletedAt(),
		s.CreatedAt(),
		s.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

// Get retrieves a submission by ID, excluding soft-deleted rows
func (r *SubmissionRepository) Get(id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = ? AND deleted_at IS NULL`

	s, err := scanSubmission(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("submission %s: %w", id, errNotFound)
	}
	return s, err
}

// Update writes the outcome fields of s.
func (r *SubmissionRepository) Update(s *models.Submission) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	s.SetUpdatedAt(now)

	query := `
		UPDATE submissions
		SET status = ?, remote_id = ?, error_message = ?, field_errors = ?, bytes_sent = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(s.Status()),
		nullString(s.RemoteID()),
		nullString(s.ErrorMessage()),
		s.FieldErrors(),
		s.BytesSent(),
		s.CompletedAt(),
		now,
		s.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return checkAffected(result, "submission", s.ID())
}

// Delete soft-deletes a submission by ID
func (r *SubmissionRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE submissions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return checkAffected(result, "submission", id)
}

// List returns submissions newest first.
//
// Criteria: "form" and "status" (strings) filter; "limit" (int) caps the result.
func (r *SubmissionRepository) List(criteria map[string]any) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE deleted_at IS NULL`
	args := []any{}

	if form, ok := criteria["form"].(string); ok && form != "" {
		query += " AND form = ?"
		args = append(args, form)
	}
	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var (
		id           string
		sequence     int
		form         string
		endpoint     string
		status       string
		remoteID     sql.NullString
		errorMessage sql.NullString
		fieldErrors  int
		bytesSent    int64
		startedAt    time.Time
		completedAt  sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &form, &endpoint, &status, &remoteID, &errorMessage, &fieldErrors,
		&bytesSent, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	s := models.NewSubmission(sequence, form, endpoint)
	s.SetID(id)
	s.SetStatus(models.SubmissionStatus(status))
	s.SetRemoteID(remoteID.String)
	s.SetErrorMessage(errorMessage.String)
	s.SetFieldErrors(fieldErrors)
	s.SetBytesSent(bytesSent)
	s.SetStartedAt(startedAt)
	s.SetCreatedAt(createdAt)
	s.SetUpdatedAt(updatedAt)
	if completedAt.Valid {
		s.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		s.SetDeletedAt(&deletedAt.Time)
	}
	return s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
