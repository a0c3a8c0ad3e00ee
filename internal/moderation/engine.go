// Package moderation implements the request moderation engine: visitor
// submissions under a per-requester quota, and the owner's accept/reject
// workflow that reconciles local records with the Spotify playlist or
// playback queue.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jukedrop/jukedrop/internal/apperr"
	"github.com/jukedrop/jukedrop/internal/db"
	"github.com/jukedrop/jukedrop/internal/spotify"
)

// SubmissionStore is the slice of submission persistence the engine reads.
type SubmissionStore interface {
	Get(ctx context.Context, id string) (*db.Submission, error)
}

// RequestStore is the persistence the engine needs for requested tracks.
type RequestStore interface {
	Create(ctx context.Context, req *db.RequestedTrack) error
	Get(ctx context.Context, id string) (*db.RequestedTrack, error)
	ListPending(ctx context.Context, submissionID string) ([]db.RequestedTrack, error)
	CountByRequester(ctx context.Context, submissionID, requestToken string) (int, error)
	MarkAccepted(ctx context.Context, ids []string) (int64, error)
	MarkRejected(ctx context.Context, id string) error
}

// SpotifyClient is the slice of the Spotify API the engine touches.
type SpotifyClient interface {
	Track(ctx context.Context, trackID string) (*spotify.Track, error)
	AddTracksToPlaylist(ctx context.Context, refreshToken, playlistID string, uris []string) (string, error)
	QueueTrack(ctx context.Context, refreshToken, uri string) error
}

// Engine moderates song requests.
type Engine struct {
	subs    SubmissionStore
	reqs    RequestStore
	spotify SpotifyClient
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewEngine creates a moderation engine.
func NewEngine(subs SubmissionStore, reqs RequestStore, sp SpotifyClient, log *zap.SugaredLogger) *Engine {
	return &Engine{
		subs:    subs,
		reqs:    reqs,
		spotify: sp,
		log:     log,
		now:     time.Now,
	}
}

// Submit records a visitor's song request as PENDING. No Spotify call is
// made here; tracks reach the external service at acceptance time. The
// quota counts every historical request by this token against the
// submission, whatever its status.
//
// The quota check and the insert are two statements, so racing submissions
// from one token can exceed the limit by a small margin. The token is
// advisory, so this is accepted.
func (e *Engine) Submit(ctx context.Context, requestToken, submissionID, trackID string) (*db.RequestedTrack, error) {
	if requestToken == "" {
		return nil, apperr.ErrMissingRequesterIdentity
	}

	sub, err := e.subs.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == db.StatusEnded {
		return nil, apperr.NewInvalidInput("submissionId", "submission has ended")
	}

	if sub.PersonRequestLimit != nil {
		count, err := e.reqs.CountByRequester(ctx, submissionID, requestToken)
		if err != nil {
			return nil, err
		}
		if count >= *sub.PersonRequestLimit {
			return nil, apperr.ErrQuotaExhausted
		}
	}

	req := &db.RequestedTrack{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		SpotifyID:    trackID,
		RequestToken: requestToken,
		Status:       db.RequestPending,
		CreatedAt:    e.now(),
	}
	if err := e.reqs.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// RequestCount returns how many requests a token has made against a
// submission.
func (e *Engine) RequestCount(ctx context.Context, requestToken, submissionID string) (int, error) {
	if requestToken == "" {
		return 0, apperr.ErrMissingRequesterIdentity
	}
	return e.reqs.CountByRequester(ctx, submissionID, requestToken)
}

// PendingTrack is a pending request enriched with live track metadata.
type PendingTrack struct {
	RequestID string        `json:"requestId"`
	Track     spotify.Track `json:"track"`
}

// PendingTracks lists a submission's pending requests with track metadata.
// A failed metadata lookup drops that entry and keeps the rest, so one bad
// track cannot blank the moderation page.
func (e *Engine) PendingTracks(ctx context.Context, userID, submissionID string) ([]PendingTrack, error) {
	if _, err := e.ownedBy(ctx, userID, submissionID); err != nil {
		return nil, err
	}

	pending, err := e.reqs.ListPending(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	tracks := make([]PendingTrack, 0, len(pending))
	for _, req := range pending {
		track, err := e.spotify.Track(ctx, req.SpotifyID)
		if err != nil {
			e.log.Warnw("track lookup failed, skipping request",
				"requestId", req.ID, "trackId", req.SpotifyID, "error", err)
			continue
		}
		tracks = append(tracks, PendingTrack{RequestID: req.ID, Track: *track})
	}
	return tracks, nil
}

// AcceptItem pairs a request with the track URI to push.
type AcceptItem struct {
	RequestID string
	URI       string
}

// AcceptResult reports what an accept actually did.
type AcceptResult struct {
	SnapshotID string `json:"snapshotId,omitempty"`
	Accepted   int64  `json:"accepted"`
}

// AcceptToPlaylist pushes the given tracks to the submission's playlist in
// one call, then marks the rows ACCEPTED. Items whose request is no longer
// PENDING are ignored, so a retried accept cannot double-count locally; the
// external push itself is at-least-once, and a retry after a local failure
// re-pushes the same URIs.
func (e *Engine) AcceptToPlaylist(ctx context.Context, userID, refreshToken, submissionID string, items []AcceptItem) (*AcceptResult, error) {
	sub, err := e.ownedBy(ctx, userID, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Type != db.SubmissionTypePlaylist || sub.SpotifyPlaylistID == nil {
		return nil, apperr.NewInvalidInput("submissionId", "not a playlist submission")
	}

	var (
		uris []string
		ids  []string
	)
	for _, item := range items {
		req, err := e.reqs.Get(ctx, item.RequestID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if req.SubmissionID != submissionID || req.Status != db.RequestPending {
			continue
		}
		uris = append(uris, item.URI)
		ids = append(ids, item.RequestID)
	}
	if len(uris) == 0 {
		return &AcceptResult{}, nil
	}

	snapshotID, err := e.spotify.AddTracksToPlaylist(ctx, refreshToken, *sub.SpotifyPlaylistID, uris)
	if err != nil {
		return nil, fmt.Errorf("pushing tracks: %w", err)
	}

	accepted, err := e.reqs.MarkAccepted(ctx, ids)
	if err != nil {
		// The external push already committed. The local update is
		// idempotent, so retrying the accept converges.
		return nil, fmt.Errorf("tracks pushed (snapshot %s) but local update failed, retry accept: %w", snapshotID, err)
	}
	return &AcceptResult{SnapshotID: snapshotID, Accepted: accepted}, nil
}

// AcceptToQueue enqueues a single track on the owner's active device, then
// marks the request ACCEPTED. With no active device the request stays
// PENDING and apperr.ErrNoActiveDevice is returned.
func (e *Engine) AcceptToQueue(ctx context.Context, userID, refreshToken, submissionID, requestID, uri string) error {
	sub, err := e.ownedBy(ctx, userID, submissionID)
	if err != nil {
		return err
	}
	if sub.Type != db.SubmissionTypeQueue {
		return apperr.NewInvalidInput("submissionId", "not a queue submission")
	}

	req, err := e.reqs.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if req.SubmissionID != submissionID {
		return apperr.ErrNotFound
	}
	if req.Status != db.RequestPending {
		return nil
	}

	if err := e.spotify.QueueTrack(ctx, refreshToken, uri); err != nil {
		return err
	}

	if _, err := e.reqs.MarkAccepted(ctx, []string{requestID}); err != nil {
		return fmt.Errorf("track queued but local update failed, retry accept: %w", err)
	}
	return nil
}

// Reject marks a request REJECTED. No external call is made; rejecting an
// already moderated request is a no-op.
func (e *Engine) Reject(ctx context.Context, userID, requestID string) error {
	req, err := e.reqs.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if _, err := e.ownedBy(ctx, userID, req.SubmissionID); err != nil {
		return err
	}
	return e.reqs.MarkRejected(ctx, requestID)
}

// ownedBy fetches a submission and hides it from non-owners.
func (e *Engine) ownedBy(ctx context.Context, userID, submissionID string) (*db.Submission, error) {
	sub, err := e.subs.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return sub, nil
}
