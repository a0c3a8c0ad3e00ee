package session

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/jukedrop/jukedrop/internal/db"
)

// PGStore persists sessions in PostgreSQL so logins survive restarts.
type PGStore struct {
	database *db.DB
}

// NewPGStore creates a database-backed session store.
func NewPGStore(database *db.DB) *PGStore {
	return &PGStore{database: database}
}

// Create stores a new session row.
func (s *PGStore) Create(ctx context.Context, token *oauth2.Token, userID, userName string) (*Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	row := &db.Session{
		ID:           id,
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := s.database.Sessions().Create(ctx, row); err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		Token:     token,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: now,
	}, nil
}

// Get retrieves a session and its owner's cached display name.
func (s *PGStore) Get(ctx context.Context, id string) *Session {
	row, err := s.database.Sessions().Get(ctx, id)
	if err != nil {
		return nil
	}

	name := ""
	if user, err := s.database.Users().Get(ctx, row.UserID); err == nil {
		name = user.DisplayName
	}

	return &Session{
		ID: row.ID,
		Token: &oauth2.Token{
			AccessToken:  row.AccessToken,
			RefreshToken: row.RefreshToken,
			Expiry:       row.TokenExpiry,
			TokenType:    "Bearer",
		},
		UserID:    row.UserID,
		UserName:  name,
		CreatedAt: row.CreatedAt,
	}
}

// Delete removes a session row.
func (s *PGStore) Delete(ctx context.Context, id string) {
	_ = s.database.Sessions().Delete(ctx, id)
}

// FromRequest extracts the session named by the request cookie.
func (s *PGStore) FromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil
	}
	return s.Get(r.Context(), cookie.Value)
}

// SetCookie sets the session cookie on the response.
func (s *PGStore) SetCookie(w http.ResponseWriter, session *Session) {
	setCookie(w, session)
}

// ClearCookie removes the session cookie from the response.
func (s *PGStore) ClearCookie(w http.ResponseWriter) {
	clearCookie(w)
}

var _ Manager = (*PGStore)(nil)
