package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jukedrop/jukedrop/internal/apperr"
)

// SubmissionRepository handles submission rows.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

const submissionColumns = `
	id, user_id, type, spotify_playlist_id, spotify_user_id, queue_name,
	status, created_at, ends_at, person_request_limit
`

// Create inserts a new submission.
func (r *SubmissionRepository) Create(ctx context.Context, s *Submission) error {
	query := `
		INSERT INTO submissions (
			id, user_id, type, spotify_playlist_id, spotify_user_id, queue_name,
			status, created_at, ends_at, person_request_limit
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.Type,
		s.SpotifyPlaylistID,
		s.SpotifyUserID,
		s.QueueName,
		s.Status,
		s.CreatedAt,
		s.EndsAt,
		s.PersonRequestLimit,
	)
	if err != nil {
		return fmt.Errorf("inserting submission: %w", err)
	}
	return nil
}

// Get retrieves a submission by id.
func (r *SubmissionRepository) Get(ctx context.Context, id string) (*Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	var s Submission
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.Type,
		&s.SpotifyPlaylistID,
		&s.SpotifyUserID,
		&s.QueueName,
		&s.Status,
		&s.CreatedAt,
		&s.EndsAt,
		&s.PersonRequestLimit,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying submission: %w", err)
	}
	return &s, nil
}

// ListByOwner returns all submissions created by userID, newest first.
func (r *SubmissionRepository) ListByOwner(ctx context.Context, userID string) ([]Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var submissions []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Type,
			&s.SpotifyPlaylistID,
			&s.SpotifyUserID,
			&s.QueueName,
			&s.Status,
			&s.CreatedAt,
			&s.EndsAt,
			&s.PersonRequestLimit,
		); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading submissions: %w", err)
	}
	return submissions, nil
}

// UpdateStatus sets a submission's status, optionally clearing ends_at in
// the same statement.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status SubmissionStatus, clearEndsAt bool) error {
	query := `UPDATE submissions SET status = $2 WHERE id = $1`
	if clearEndsAt {
		query = `UPDATE submissions SET status = $2, ends_at = NULL WHERE id = $1`
	}

	result, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("updating submission status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Delete removes a submission. Requested tracks cascade at the schema level.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting submission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
