package api

import (
	"net/http"

	"github.com/jukedrop/jukedrop/internal/db"
	"github.com/jukedrop/jukedrop/internal/moderation"
	"github.com/jukedrop/jukedrop/internal/submission"
)

// ListMySubmissions returns the caller's submissions with live playlist
// metadata.
func (h *Handlers) ListMySubmissions(w http.ResponseWriter, r *http.Request) {
	sess := ownerSession(r.Context())

	overviews, err := h.submissions.ListMine(r.Context(), sess.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"submissions": overviews})
}

// GetSubmissionDetail returns one of the caller's submissions.
func (h *Handlers) GetSubmissionDetail(w http.ResponseWriter, r *http.Request) {
	var in submissionIDInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	sess := ownerSession(r.Context())

	detail, err := h.submissions.Detail(r.Context(), sess.UserID, in.SubmissionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

// ListPendingRequests returns a submission's pending requests enriched
// with track metadata.
func (h *Handlers) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	var in submissionIDInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	sess := ownerSession(r.Context())

	tracks, err := h.engine.PendingTracks(r.Context(), sess.UserID, in.SubmissionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

type createSubmissionInput struct {
	Title              string `json:"title" validate:"required"`
	Type               string `json:"type" validate:"required,oneof=PLAYLIST QUEUE"`
	DurationHours      int    `json:"durationHours" validate:"gte=0"`
	PersonRequestLimit int    `json:"personRequestLimit" validate:"gte=0"`
}

// CreateSubmission opens a new submission, creating the backing Spotify
// playlist when the type calls for one.
func (h *Handlers) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var in createSubmissionInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	sess := ownerSession(r.Context())

	sub, err := h.submissions.Create(r.Context(), sess.UserID, sess.Token.RefreshToken, submission.CreateParams{
		Title:              in.Title,
		Type:               db.SubmissionType(in.Type),
		DurationHours:      in.DurationHours,
		PersonRequestLimit: in.PersonRequestLimit,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"submissionId": sub.ID})
}

type acceptRequestsInput struct {
	SubmissionID string `json:"submissionId" validate:"required"`
	Tracks       []struct {
		RequestID string `json:"requestId" validate:"required"`
		URI       string `json:"uri" validate:"required"`
	} `json:"tracks" validate:"required,min=1,dive"`
}

// AcceptRequests pushes the given tracks to the submission's playlist and
// marks them accepted.
func (h *Handlers) AcceptRequests(w http.ResponseWriter, r *http.Request) {
	var in acceptRequestsInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	sess := ownerSession(r.Context())

	items := make([]moderation.AcceptItem, len(in.Tracks))
	for i, t := range in.Tracks {
		items[i] = moderation.AcceptItem{RequestID: t.RequestID, URI: t.URI}
	}

	result, err := h.engine.AcceptToPlaylist(r.Context(), sess.UserID, sess.Token.RefreshToken, in.SubmissionID, items)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type acceptToQueueInput struct {
	SubmissionID string `json:"submissionId" validate:"required"`
	RequestID    string `json:"requestId" validate:"required"`
	URI          string `json:"uri" validate:"required"`
}

// AcceptToQueue enqueues a single track on the owner's active device and
// marks the request accepted.
func (h *Handlers) AcceptToQueue(w http.ResponseWriter, r *http.Request) {
	var in acceptToQueueInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	sess := ownerSession(r.Context())

	if err := h.engine.AcceptToQueue(r.Context(), sess.UserID, sess.Token.RefreshToken, in.SubmissionID, in.RequestID, in.URI); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

type rejectRequestInput struct {
	RequestID string `json:"requestId" validate:"required"`
}

// RejectRequest dismisses a pending request.
func (h *Handlers) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var in rejectRequestInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	sess := ownerSession(r.Context())

	if err := h.engine.Reject(r.Context(), sess.UserID, in.RequestID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

type setStatusInput struct {
	SubmissionID string `json:"submissionId" validate:"required"`
	Status       string `json:"status" validate:"required,oneof=ONGOING PAUSED ENDED"`
}

// SetSubmissionStatus applies a lifecycle transition.
func (h *Handlers) SetSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	var in setStatusInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	sess := ownerSession(r.Context())

	if err := h.submissions.SetStatus(r.Context(), sess.UserID, in.SubmissionID, db.SubmissionStatus(in.Status)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// DeleteSubmission removes a submission and all of its requests.
func (h *Handlers) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	var in submissionIDInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	sess := ownerSession(r.Context())

	if err := h.submissions.Delete(r.Context(), sess.UserID, in.SubmissionID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// ListDevices returns the owner's available playback devices.
func (h *Handlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	sess := ownerSession(r.Context())

	devices, err := h.spotify.Devices(r.Context(), sess.Token.RefreshToken)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}
