// Package submission owns the lifecycle of a submission: creation with its
// external side effects, the status state machine, expiry, and deletion.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jukedrop/jukedrop/internal/apperr"
	"github.com/jukedrop/jukedrop/internal/db"
	"github.com/jukedrop/jukedrop/internal/spotify"
)

// SubmissionStore is the persistence the service needs for submissions.
type SubmissionStore interface {
	Create(ctx context.Context, s *db.Submission) error
	Get(ctx context.Context, id string) (*db.Submission, error)
	ListByOwner(ctx context.Context, userID string) ([]db.Submission, error)
	UpdateStatus(ctx context.Context, id string, status db.SubmissionStatus, clearEndsAt bool) error
	Delete(ctx context.Context, id string) error
}

// RequestStore is the slice of request persistence the lifecycle touches.
type RequestStore interface {
	DeleteBySubmission(ctx context.Context, submissionID string) error
}

// SpotifyClient is the slice of the Spotify API the lifecycle touches.
type SpotifyClient interface {
	MyProfile(ctx context.Context, refreshToken string) (*spotify.Profile, error)
	CreatePlaylist(ctx context.Context, refreshToken, spotifyUserID, name string) (*spotify.Playlist, error)
	PlaylistDetail(ctx context.Context, playlistID string) (*spotify.Playlist, error)
}

// Service mediates all submission lifecycle transitions.
type Service struct {
	subs    SubmissionStore
	reqs    RequestStore
	spotify SpotifyClient
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewService creates a lifecycle service.
func NewService(subs SubmissionStore, reqs RequestStore, sp SpotifyClient, log *zap.SugaredLogger) *Service {
	return &Service{
		subs:    subs,
		reqs:    reqs,
		spotify: sp,
		log:     log,
		now:     time.Now,
	}
}

// CreateParams describes a new submission.
type CreateParams struct {
	Title              string
	Type               db.SubmissionType
	DurationHours      int // 0 means no expiry
	PersonRequestLimit int // 0 means unlimited
}

// Create opens a new submission for the owner. For PLAYLIST submissions the
// external playlist is created first and the row is only persisted on
// success, so a Spotify failure never leaves an orphan submission.
func (s *Service) Create(ctx context.Context, userID, refreshToken string, params CreateParams) (*db.Submission, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, apperr.NewInvalidInput("title", "must not be empty")
	}
	if params.DurationHours < 0 {
		return nil, apperr.NewInvalidInput("durationHours", "must not be negative")
	}
	if params.PersonRequestLimit < 0 {
		return nil, apperr.NewInvalidInput("personRequestLimit", "must not be negative")
	}

	// The owner's external account id is needed up front: playlist creation
	// addresses it, and QUEUE moderation later resolves devices against it.
	profile, err := s.spotify.MyProfile(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("resolving owner profile: %w", err)
	}

	now := s.now()
	sub := &db.Submission{
		ID:            uuid.NewString(),
		UserID:        userID,
		Type:          params.Type,
		SpotifyUserID: profile.ID,
		Status:        db.StatusOngoing,
		CreatedAt:     now,
	}
	if params.DurationHours > 0 {
		endsAt := now.Add(time.Duration(params.DurationHours) * time.Hour)
		sub.EndsAt = &endsAt
	}
	if params.PersonRequestLimit > 0 {
		limit := params.PersonRequestLimit
		sub.PersonRequestLimit = &limit
	}

	switch params.Type {
	case db.SubmissionTypePlaylist:
		playlist, err := s.spotify.CreatePlaylist(ctx, refreshToken, profile.ID, title)
		if err != nil {
			return nil, fmt.Errorf("creating playlist: %w", err)
		}
		sub.SpotifyPlaylistID = &playlist.ID
	case db.SubmissionTypeQueue:
		sub.QueueName = &title
	default:
		return nil, apperr.NewInvalidInput("type", "must be PLAYLIST or QUEUE")
	}

	if err := s.subs.Create(ctx, sub); err != nil {
		if sub.SpotifyPlaylistID != nil {
			// The playlist exists upstream with no local row; it is empty
			// and harmless, but worth a trace.
			s.log.Warnw("submission insert failed after playlist creation",
				"playlistId", *sub.SpotifyPlaylistID, "error", err)
		}
		return nil, err
	}
	return sub, nil
}

// GetForVisitor reads a submission on behalf of a visitor. Reading an
// expired submission transitions it to ENDED as a side effect, purging its
// requests.
func (s *Service) GetForVisitor(ctx context.Context, id string) (*db.Submission, error) {
	sub, err := s.subs.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.Status != db.StatusEnded && sub.EndsAt != nil && s.now().After(*sub.EndsAt) {
		if err := s.end(ctx, sub.ID); err != nil {
			return nil, fmt.Errorf("expiring submission: %w", err)
		}
		sub.Status = db.StatusEnded
		sub.EndsAt = nil
	}
	return sub, nil
}

// Overview pairs a submission with its live playlist metadata, when any.
type Overview struct {
	Submission db.Submission     `json:"submission"`
	Playlist   *spotify.Playlist `json:"playlist,omitempty"`
}

// ListMine returns the owner's submissions with live playlist metadata.
// Individual playlist lookups that fail leave the entry without playlist
// data instead of failing the whole list.
func (s *Service) ListMine(ctx context.Context, userID string) ([]Overview, error) {
	subs, err := s.subs.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	overviews := make([]Overview, len(subs))
	for i, sub := range subs {
		overviews[i] = Overview{Submission: sub}
		if sub.SpotifyPlaylistID == nil {
			continue
		}
		playlist, err := s.spotify.PlaylistDetail(ctx, *sub.SpotifyPlaylistID)
		if err != nil {
			s.log.Warnw("playlist lookup failed", "submissionId", sub.ID, "error", err)
			continue
		}
		overviews[i].Playlist = playlist
	}
	return overviews, nil
}

// Detail returns one of the owner's submissions with live playlist
// metadata. A submission owned by someone else is reported as not found.
func (s *Service) Detail(ctx context.Context, userID, id string) (*Overview, error) {
	sub, err := s.ownedBy(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	overview := &Overview{Submission: *sub}
	if sub.SpotifyPlaylistID != nil {
		playlist, err := s.spotify.PlaylistDetail(ctx, *sub.SpotifyPlaylistID)
		if err != nil {
			return nil, err
		}
		overview.Playlist = playlist
	}
	return overview, nil
}

// VisitorPlaylist resolves a submission's playlist for the visitor page. A
// playlist deleted upstream self-heals: the orphaned submission row is
// removed and the caller sees not found.
func (s *Service) VisitorPlaylist(ctx context.Context, submissionID string) (*spotify.Playlist, error) {
	sub, err := s.subs.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.SpotifyPlaylistID == nil {
		return nil, apperr.NewInvalidInput("submissionId", "submission has no playlist")
	}

	playlist, err := s.spotify.PlaylistDetail(ctx, *sub.SpotifyPlaylistID)
	if errors.Is(err, apperr.ErrNotFound) {
		s.log.Infow("playlist gone upstream, removing submission", "submissionId", sub.ID)
		if delErr := s.subs.Delete(ctx, sub.ID); delErr != nil {
			return nil, fmt.Errorf("removing orphaned submission: %w", delErr)
		}
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return playlist, nil
}

// SetStatus applies an owner-initiated status transition.
func (s *Service) SetStatus(ctx context.Context, userID, id string, status db.SubmissionStatus) error {
	if !status.Valid() {
		return apperr.NewInvalidInput("status", "must be ONGOING, PAUSED or ENDED")
	}
	if _, err := s.ownedBy(ctx, userID, id); err != nil {
		return err
	}

	switch status {
	case db.StatusEnded:
		// Ending clears accumulated state: the expiry is reset so it cannot
		// immediately re-trigger, and every request is purged.
		return s.end(ctx, id)
	case db.StatusOngoing:
		// Resuming drops any prior expiry; the owner sets a new one
		// explicitly if desired.
		return s.subs.UpdateStatus(ctx, id, db.StatusOngoing, true)
	case db.StatusPaused:
		// Advisory only: visitors may still request.
		return s.subs.UpdateStatus(ctx, id, db.StatusPaused, false)
	}
	return nil
}

// Delete removes one of the owner's submissions and all of its requests.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.ownedBy(ctx, userID, id); err != nil {
		return err
	}
	return s.subs.Delete(ctx, id)
}

// end transitions a submission to ENDED, clears ends_at and purges requests.
func (s *Service) end(ctx context.Context, id string) error {
	if err := s.subs.UpdateStatus(ctx, id, db.StatusEnded, true); err != nil {
		return err
	}
	return s.reqs.DeleteBySubmission(ctx, id)
}

// ownedBy fetches a submission and hides it from non-owners.
func (s *Service) ownedBy(ctx context.Context, userID, id string) (*db.Submission, error) {
	sub, err := s.subs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return sub, nil
}
