package db

import (
	"context"
	"fmt"
)

// schema is applied at startup. Statements are idempotent so repeated boots
// are safe.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	image_url    TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	token_expiry  TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	type                 TEXT NOT NULL,
	spotify_playlist_id  TEXT,
	spotify_user_id      TEXT NOT NULL,
	queue_name           TEXT,
	status               TEXT NOT NULL DEFAULT 'ONGOING',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	ends_at              TIMESTAMPTZ,
	person_request_limit INTEGER
);

CREATE INDEX IF NOT EXISTS submissions_user_id_idx ON submissions (user_id);

CREATE TABLE IF NOT EXISTS requested_tracks (
	id            TEXT PRIMARY KEY,
	submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
	spotify_id    TEXT NOT NULL,
	request_token TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'PENDING',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS requested_tracks_submission_idx
	ON requested_tracks (submission_id, status);
CREATE INDEX IF NOT EXISTS requested_tracks_quota_idx
	ON requested_tracks (submission_id, request_token);
`

// EnsureSchema creates the tables if they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
