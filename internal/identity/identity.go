// Package identity issues and recognizes the anonymous per-browser token
// used to rate-limit song requests. The token is advisory: a visitor who
// clears cookies gets a fresh one, which is an accepted limitation.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

// CookieName is the anonymous requester cookie.
const CookieName = "submission-token"

type contextKey struct{}

// Middleware ensures every request carries a requester token. A missing
// cookie gets a fresh random token attached to the response; an existing
// token is never overwritten. The token is always placed on the request
// context so the issuing request can already use it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
			token = cookie.Value
		} else {
			generated, err := generateToken()
			if err != nil {
				http.Error(w, "failed to issue requester token", http.StatusInternalServerError)
				return
			}
			token = generated
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				SameSite: http.SameSiteLaxMode,
				// No MaxAge: the browser keeps it for its default lifetime.
			})
		}

		ctx := context.WithValue(r.Context(), contextKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the requester token attached by Middleware.
func FromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(contextKey{}).(string)
	return token, ok && token != ""
}

// generateToken creates an unguessable random token.
func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
