package api

import (
	"net/http"

	"github.com/jukedrop/jukedrop/internal/apperr"
	"github.com/jukedrop/jukedrop/internal/identity"
)

type submitTrackRequestInput struct {
	SubmissionID string `json:"submissionId" validate:"required"`
	TrackID      string `json:"trackId" validate:"required"`
}

// SubmitTrackRequest records a visitor's song request.
func (h *Handlers) SubmitTrackRequest(w http.ResponseWriter, r *http.Request) {
	var in submitTrackRequestInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}

	token, ok := identity.FromContext(r.Context())
	if !ok {
		h.writeError(w, apperr.ErrMissingRequesterIdentity)
		return
	}

	req, err := h.engine.Submit(r.Context(), token, in.SubmissionID, in.TrackID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"requestId": req.ID})
}

type searchTracksInput struct {
	Query string `json:"query" validate:"required"`
}

// SearchTracks runs a free-text track search.
func (h *Handlers) SearchTracks(w http.ResponseWriter, r *http.Request) {
	var in searchTracksInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}

	tracks, err := h.spotify.SearchTracks(r.Context(), in.Query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

type submissionIDInput struct {
	SubmissionID string `json:"submissionId" validate:"required"`
}

// GetSubmission returns a submission for the visitor page. Reading an
// expired submission ends it.
func (h *Handlers) GetSubmission(w http.ResponseWriter, r *http.Request) {
	var in submissionIDInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}

	sub, err := h.submissions.GetForVisitor(r.Context(), in.SubmissionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"submission": sub})
}

// GetSubmissionPlaylist returns the live playlist behind a submission,
// deleting the submission if the playlist is gone upstream.
func (h *Handlers) GetSubmissionPlaylist(w http.ResponseWriter, r *http.Request) {
	var in submissionIDInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}

	playlist, err := h.submissions.VisitorPlaylist(r.Context(), in.SubmissionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"playlist": playlist})
}

// GetRecommendations returns the new-release recommendation surface.
func (h *Handlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.spotify.NewReleaseTracks(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"recommendations": tracks})
}

type ownerProfileInput struct {
	SpotifyUserID string `json:"spotifyUserId" validate:"required"`
}

// GetOwnerProfile returns the public profile of a submission's owner.
func (h *Handlers) GetOwnerProfile(w http.ResponseWriter, r *http.Request) {
	var in ownerProfileInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}

	profile, err := h.spotify.PublicProfile(r.Context(), in.SpotifyUserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

// GetRequestCount returns how many requests the calling visitor has made
// against a submission.
func (h *Handlers) GetRequestCount(w http.ResponseWriter, r *http.Request) {
	var in submissionIDInput
	if err := h.bind(r, &in); err != nil {
		h.writeError(w, err)
		return
	}

	token, ok := identity.FromContext(r.Context())
	if !ok {
		h.writeError(w, apperr.ErrMissingRequesterIdentity)
		return
	}

	count, err := h.engine.RequestCount(r.Context(), token, in.SubmissionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"count": count})
}
