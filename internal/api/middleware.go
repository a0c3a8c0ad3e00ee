package api

import (
	"context"
	"net/http"

	"github.com/jukedrop/jukedrop/internal/apperr"
	"github.com/jukedrop/jukedrop/internal/session"
)

type sessionKey struct{}

// requireOwner gates the owner surface: the caller must hold an active
// session with a linked Spotify refresh credential. Both checks run before
// any business logic.
func (h *Handlers) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := h.sessions.FromRequest(r)
		if sess == nil || sess.Token == nil || sess.Token.RefreshToken == "" {
			h.writeError(w, apperr.ErrUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerSession returns the session attached by requireOwner.
func ownerSession(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}
