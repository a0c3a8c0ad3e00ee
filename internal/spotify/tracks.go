package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
)

// Spotify caps GET /v1/tracks at 50 ids per call.
const maxTracksPerRequest = 50

// SearchTracks runs a free-text track search with the app credential.
func (c *Client) SearchTracks(ctx context.Context, query string) ([]Track, error) {
	api, err := c.appAPI(ctx)
	if err != nil {
		return nil, err
	}

	var tracks []Track
	err = c.do(ctx, "searching tracks", func(ctx context.Context) error {
		result, err := api.Search(ctx, query, spotify.SearchTypeTrack)
		if err != nil {
			return err
		}
		if result.Tracks == nil {
			tracks = []Track{}
			return nil
		}
		tracks = make([]Track, len(result.Tracks.Tracks))
		for i, t := range result.Tracks.Tracks {
			tracks[i] = convertTrack(t)
		}
		return nil
	})
	return tracks, err
}

// Track fetches metadata for a single track with the app credential.
func (c *Client) Track(ctx context.Context, trackID string) (*Track, error) {
	api, err := c.appAPI(ctx)
	if err != nil {
		return nil, err
	}

	var track *Track
	err = c.do(ctx, "fetching track", func(ctx context.Context) error {
		full, err := api.GetTrack(ctx, spotify.ID(trackID))
		if err != nil {
			return err
		}
		t := convertTrack(*full)
		track = &t
		return nil
	})
	return track, err
}

// Tracks fetches metadata for several tracks, chunking requests to the API
// limit. Order follows the input ids.
func (c *Client) Tracks(ctx context.Context, trackIDs []string) ([]Track, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}

	api, err := c.appAPI(ctx)
	if err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(trackIDs))
	for start := 0; start < len(trackIDs); start += maxTracksPerRequest {
		end := min(start+maxTracksPerRequest, len(trackIDs))

		ids := make([]spotify.ID, end-start)
		for i, id := range trackIDs[start:end] {
			ids[i] = spotify.ID(id)
		}

		err := c.do(ctx, "fetching tracks", func(ctx context.Context) error {
			batch, err := api.GetTracks(ctx, ids)
			if err != nil {
				return err
			}
			for _, t := range batch {
				if t == nil {
					continue
				}
				tracks = append(tracks, convertTrack(*t))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return tracks, nil
}
