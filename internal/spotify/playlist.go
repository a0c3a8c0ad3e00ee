package spotify

import (
	"context"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// ListMyPlaylists returns the owner's playlists (first page; owners with
// more than 50 playlists see the most recent ones).
func (c *Client) ListMyPlaylists(ctx context.Context, refreshToken string) ([]Playlist, error) {
	api := c.ownerAPI(ctx, refreshToken)

	var playlists []Playlist
	err := c.do(ctx, "listing playlists", func(ctx context.Context) error {
		page, err := api.CurrentUsersPlaylists(ctx, spotify.Limit(50))
		if err != nil {
			return err
		}
		playlists = make([]Playlist, len(page.Playlists))
		for i, p := range page.Playlists {
			playlists[i] = convertPlaylist(p)
		}
		return nil
	})
	return playlists, err
}

// CreatePlaylist creates a new playlist owned by spotifyUserID and returns
// its metadata.
func (c *Client) CreatePlaylist(ctx context.Context, refreshToken, spotifyUserID, name string) (*Playlist, error) {
	api := c.ownerAPI(ctx, refreshToken)

	var playlist *Playlist
	err := c.do(ctx, "creating playlist", func(ctx context.Context) error {
		created, err := api.CreatePlaylistForUser(ctx, spotifyUserID, name, "", true, false)
		if err != nil {
			return err
		}
		p := convertPlaylist(created.SimplePlaylist)
		playlist = &p
		return nil
	})
	return playlist, err
}

// PlaylistDetail fetches playlist metadata with the app credential. A
// deleted or inaccessible playlist surfaces as apperr.ErrNotFound.
func (c *Client) PlaylistDetail(ctx context.Context, playlistID string) (*Playlist, error) {
	api, err := c.appAPI(ctx)
	if err != nil {
		return nil, err
	}

	var playlist *Playlist
	err = c.do(ctx, "fetching playlist", func(ctx context.Context) error {
		full, err := api.GetPlaylist(ctx, spotify.ID(playlistID))
		if err != nil {
			return err
		}
		p := convertPlaylist(full.SimplePlaylist)
		playlist = &p
		return nil
	})
	return playlist, err
}

// AddTracksToPlaylist adds the given track URIs to a playlist in a single
// call and returns the resulting snapshot id.
func (c *Client) AddTracksToPlaylist(ctx context.Context, refreshToken, playlistID string, uris []string) (string, error) {
	api := c.ownerAPI(ctx, refreshToken)

	ids := make([]spotify.ID, len(uris))
	for i, uri := range uris {
		ids[i] = trackIDFromURI(uri)
	}

	var snapshotID string
	err := c.do(ctx, "adding tracks to playlist", func(ctx context.Context) error {
		snapshot, err := api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...)
		if err != nil {
			return err
		}
		snapshotID = snapshot
		return nil
	})
	return snapshotID, err
}

// trackIDFromURI accepts either a full "spotify:track:<id>" URI or a bare id.
func trackIDFromURI(uri string) spotify.ID {
	return spotify.ID(strings.TrimPrefix(uri, "spotify:track:"))
}
