// Package apperr defines the error taxonomy shared by every layer of the
// application. Callers classify failures with errors.Is / errors.As.
package apperr

import (
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized is returned when an owner-only operation is attempted
	// without an active session or without a linked Spotify credential.
	ErrUnauthorized = fmt.Errorf("unauthorized")

	// ErrMissingRequesterIdentity is returned when a visitor mutation arrives
	// without the anonymous submission token.
	ErrMissingRequesterIdentity = fmt.Errorf("missing requester identity")

	// ErrNotFound is returned when a referenced submission or request does
	// not exist (or is not visible to the caller).
	ErrNotFound = fmt.Errorf("not found")

	// ErrQuotaExhausted is returned when a requester has reached the
	// submission's per-person request limit.
	ErrQuotaExhausted = fmt.Errorf("request quota exhausted")

	// ErrRemoteDataInvalid is returned when the Spotify API responds with a
	// shape that fails decoding. Not retried automatically.
	ErrRemoteDataInvalid = fmt.Errorf("remote data invalid")

	// ErrServiceAuthFailure is returned when a token exchange with Spotify
	// fails.
	ErrServiceAuthFailure = fmt.Errorf("service auth failure")

	// ErrNoActiveDevice is returned when an enqueue is attempted while the
	// owner has no active playback device.
	ErrNoActiveDevice = fmt.Errorf("no active playback device")
)

// InvalidInput describes a validation failure with per-field detail. It is
// returned before any side effect takes place.
type InvalidInput struct {
	Fields map[string]string
}

func (e *InvalidInput) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// NewInvalidInput builds an InvalidInput error for a single field.
func NewInvalidInput(field, msg string) *InvalidInput {
	return &InvalidInput{Fields: map[string]string{field: msg}}
}
