package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jukedrop/jukedrop/internal/apperr"
)

// RequestRepository handles requested-track rows.
type RequestRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new requested track.
func (r *RequestRepository) Create(ctx context.Context, req *RequestedTrack) error {
	query := `
		INSERT INTO requested_tracks (id, submission_id, spotify_id, request_token, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.SubmissionID,
		req.SpotifyID,
		req.RequestToken,
		req.Status,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting requested track: %w", err)
	}
	return nil
}

// Get retrieves a requested track by id.
func (r *RequestRepository) Get(ctx context.Context, id string) (*RequestedTrack, error) {
	query := `
		SELECT id, submission_id, spotify_id, request_token, status, created_at
		FROM requested_tracks
		WHERE id = $1
	`
	var req RequestedTrack
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.SubmissionID,
		&req.SpotifyID,
		&req.RequestToken,
		&req.Status,
		&req.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying requested track: %w", err)
	}
	return &req, nil
}

// ListPending returns all pending requests for a submission, oldest first.
func (r *RequestRepository) ListPending(ctx context.Context, submissionID string) ([]RequestedTrack, error) {
	query := `
		SELECT id, submission_id, spotify_id, request_token, status, created_at
		FROM requested_tracks
		WHERE submission_id = $1 AND status = $2
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, submissionID, RequestPending)
	if err != nil {
		return nil, fmt.Errorf("querying pending requests: %w", err)
	}
	defer rows.Close()

	var requests []RequestedTrack
	for rows.Next() {
		var req RequestedTrack
		if err := rows.Scan(
			&req.ID,
			&req.SubmissionID,
			&req.SpotifyID,
			&req.RequestToken,
			&req.Status,
			&req.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning requested track: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading pending requests: %w", err)
	}
	return requests, nil
}

// CountByRequester counts every request a requester has made against a
// submission, regardless of status. Accepted and rejected rows deliberately
// count toward the quota.
func (r *RequestRepository) CountByRequester(ctx context.Context, submissionID, requestToken string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM requested_tracks
		WHERE submission_id = $1 AND request_token = $2
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, submissionID, requestToken).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting requests: %w", err)
	}
	return count, nil
}

// MarkAccepted flips the given requests to ACCEPTED. Only rows still
// PENDING are touched, so a retried accept cannot resurrect rejected rows.
// Returns the number of rows updated.
func (r *RequestRepository) MarkAccepted(ctx context.Context, ids []string) (int64, error) {
	query := `
		UPDATE requested_tracks
		SET status = $2
		WHERE id = ANY($1) AND status = $3
	`
	result, err := r.pool.Exec(ctx, query, ids, RequestAccepted, RequestPending)
	if err != nil {
		return 0, fmt.Errorf("marking requests accepted: %w", err)
	}
	return result.RowsAffected(), nil
}

// MarkRejected flips a request to REJECTED if it is still PENDING. A no-op
// on already moderated rows.
func (r *RequestRepository) MarkRejected(ctx context.Context, id string) error {
	query := `
		UPDATE requested_tracks
		SET status = $2
		WHERE id = $1 AND status = $3
	`
	if _, err := r.pool.Exec(ctx, query, id, RequestRejected, RequestPending); err != nil {
		return fmt.Errorf("marking request rejected: %w", err)
	}
	return nil
}

// DeleteBySubmission purges every request belonging to a submission.
func (r *RequestRepository) DeleteBySubmission(ctx context.Context, submissionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM requested_tracks WHERE submission_id = $1`, submissionID); err != nil {
		return fmt.Errorf("deleting requests: %w", err)
	}
	return nil
}
