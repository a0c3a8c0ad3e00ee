package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
)

// Spotify caps GET /v1/albums at 20 ids; the recommendation surface only
// ever needs the first 10 new releases.
const maxAlbumsPerRequest = 10

// NewReleaseTracks returns the lead track of each of the latest new-release
// albums. This stands in for the retired recommendations endpoint.
func (c *Client) NewReleaseTracks(ctx context.Context) ([]Track, error) {
	api, err := c.appAPI(ctx)
	if err != nil {
		return nil, err
	}

	var albumIDs []spotify.ID
	err = c.do(ctx, "fetching new releases", func(ctx context.Context) error {
		page, err := api.NewReleases(ctx, spotify.Limit(maxAlbumsPerRequest))
		if err != nil {
			return err
		}
		albumIDs = make([]spotify.ID, 0, len(page.Albums))
		for _, album := range page.Albums {
			albumIDs = append(albumIDs, album.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(albumIDs) > maxAlbumsPerRequest {
		albumIDs = albumIDs[:maxAlbumsPerRequest]
	}
	if len(albumIDs) == 0 {
		return []Track{}, nil
	}

	var tracks []Track
	err = c.do(ctx, "fetching albums", func(ctx context.Context) error {
		albums, err := api.GetAlbums(ctx, albumIDs)
		if err != nil {
			return err
		}
		tracks = make([]Track, 0, len(albums))
		for _, album := range albums {
			if album == nil || len(album.Tracks.Tracks) == 0 {
				continue
			}
			lead := album.Tracks.Tracks[0]
			tracks = append(tracks, Track{
				ID:      lead.ID.String(),
				Name:    lead.Name,
				URI:     string(lead.URI),
				Artists: convertArtists(lead.Artists),
				Album: Album{
					ID:     album.ID.String(),
					Name:   album.Name,
					Images: convertImages(album.Images),
				},
			})
		}
		return nil
	})
	return tracks, err
}
