package spotify

import "github.com/zmb3/spotify/v2"

// Image is album or profile artwork.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Profile is the public shape of a Spotify user.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Images      []Image `json:"images"`
}

// Playlist is the subset of playlist metadata the application uses.
type Playlist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Artist identifies a performing artist on a track.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album carries the artwork a track is displayed with.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is the shape requests and search results are rendered from.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	URI     string   `json:"uri"`
	Artists []Artist `json:"artists"`
	Album   Album    `json:"album"`
}

// Device is an available playback target.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

func convertImages(images []spotify.Image) []Image {
	out := make([]Image, len(images))
	for i, img := range images {
		out[i] = Image{URL: img.URL, Height: int(img.Height), Width: int(img.Width)}
	}
	return out
}

func convertProfile(user spotify.User) *Profile {
	return &Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Images:      convertImages(user.Images),
	}
}

func convertPlaylist(p spotify.SimplePlaylist) Playlist {
	return Playlist{
		ID:     p.ID.String(),
		Name:   p.Name,
		Images: convertImages(p.Images),
	}
}

func convertArtists(artists []spotify.SimpleArtist) []Artist {
	out := make([]Artist, len(artists))
	for i, a := range artists {
		out[i] = Artist{ID: a.ID.String(), Name: a.Name}
	}
	return out
}

func convertTrack(t spotify.FullTrack) Track {
	return Track{
		ID:      t.ID.String(),
		Name:    t.Name,
		URI:     string(t.URI),
		Artists: convertArtists(t.Artists),
		Album: Album{
			ID:     t.Album.ID.String(),
			Name:   t.Album.Name,
			Images: convertImages(t.Album.Images),
		},
	}
}
