package db

import "time"

// SubmissionType distinguishes where accepted tracks end up.
type SubmissionType string

const (
	// SubmissionTypePlaylist collects accepted tracks into a playlist.
	SubmissionTypePlaylist SubmissionType = "PLAYLIST"
	// SubmissionTypeQueue pushes accepted tracks onto the live queue.
	SubmissionTypeQueue SubmissionType = "QUEUE"
)

// SubmissionStatus is the submission lifecycle state.
type SubmissionStatus string

const (
	StatusOngoing SubmissionStatus = "ONGOING"
	StatusPaused  SubmissionStatus = "PAUSED"
	StatusEnded   SubmissionStatus = "ENDED"
)

// Valid reports whether s is one of the known statuses.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusOngoing, StatusPaused, StatusEnded:
		return true
	}
	return false
}

// RequestStatus is the moderation state of a requested track.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
)

// Submission is a shareable song-request session.
type Submission struct {
	ID                 string
	UserID             string
	Type               SubmissionType
	SpotifyPlaylistID  *string // set for PLAYLIST submissions
	SpotifyUserID      string  // owner's Spotify account id
	QueueName          *string // set for QUEUE submissions
	Status             SubmissionStatus
	CreatedAt          time.Time
	EndsAt             *time.Time // nullable
	PersonRequestLimit *int       // nullable; nil means unlimited
}

// RequestedTrack is an anonymous visitor's song request.
type RequestedTrack struct {
	ID           string
	SubmissionID string
	SpotifyID    string
	RequestToken string
	Status       RequestStatus
	CreatedAt    time.Time
}

// Session is an authenticated owner session with the linked Spotify
// credential.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// User is a cached Spotify owner profile.
type User struct {
	ID          string
	DisplayName string
	ImageURL    *string // nullable
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
