package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jukedrop/jukedrop/internal/apperr"
	"github.com/jukedrop/jukedrop/internal/db"
	"github.com/jukedrop/jukedrop/internal/identity"
	"github.com/jukedrop/jukedrop/internal/moderation"
	"github.com/jukedrop/jukedrop/internal/session"
	"github.com/jukedrop/jukedrop/internal/spotify"
	"github.com/jukedrop/jukedrop/internal/submission"
)

// memStores backs both the lifecycle service and the moderation engine with
// plain maps.
type memStores struct {
	submissions map[string]*db.Submission
	requests    map[string]*db.RequestedTrack
}

func newMemStores() *memStores {
	return &memStores{
		submissions: make(map[string]*db.Submission),
		requests:    make(map[string]*db.RequestedTrack),
	}
}

func (m *memStores) Create(_ context.Context, s *db.Submission) error {
	clone := *s
	m.submissions[s.ID] = &clone
	return nil
}

func (m *memStores) Get(_ context.Context, id string) (*db.Submission, error) {
	s, ok := m.submissions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *memStores) ListByOwner(_ context.Context, userID string) ([]db.Submission, error) {
	var out []db.Submission
	for _, s := range m.submissions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStores) UpdateStatus(_ context.Context, id string, status db.SubmissionStatus, clearEndsAt bool) error {
	s, ok := m.submissions[id]
	if !ok {
		return apperr.ErrNotFound
	}
	s.Status = status
	if clearEndsAt {
		s.EndsAt = nil
	}
	return nil
}

func (m *memStores) Delete(_ context.Context, id string) error {
	delete(m.submissions, id)
	return nil
}

func (m *memStores) CreateRequest(_ context.Context, req *db.RequestedTrack) error {
	clone := *req
	m.requests[req.ID] = &clone
	return nil
}

func (m *memStores) GetRequest(_ context.Context, id string) (*db.RequestedTrack, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (m *memStores) ListPending(_ context.Context, submissionID string) ([]db.RequestedTrack, error) {
	var out []db.RequestedTrack
	for _, req := range m.requests {
		if req.SubmissionID == submissionID && req.Status == db.RequestPending {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (m *memStores) CountByRequester(_ context.Context, submissionID, token string) (int, error) {
	count := 0
	for _, req := range m.requests {
		if req.SubmissionID == submissionID && req.RequestToken == token {
			count++
		}
	}
	return count, nil
}

func (m *memStores) MarkAccepted(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if req, ok := m.requests[id]; ok && req.Status == db.RequestPending {
			req.Status = db.RequestAccepted
			n++
		}
	}
	return n, nil
}

func (m *memStores) MarkRejected(_ context.Context, id string) error {
	if req, ok := m.requests[id]; ok && req.Status == db.RequestPending {
		req.Status = db.RequestRejected
	}
	return nil
}

func (m *memStores) DeleteBySubmission(_ context.Context, submissionID string) error {
	for id, req := range m.requests {
		if req.SubmissionID == submissionID {
			delete(m.requests, id)
		}
	}
	return nil
}

// requestRepo adapts memStores to the method names the moderation engine
// expects for requested tracks.
type requestRepo struct{ *memStores }

func (r requestRepo) Create(ctx context.Context, req *db.RequestedTrack) error {
	return r.CreateRequest(ctx, req)
}

func (r requestRepo) Get(ctx context.Context, id string) (*db.RequestedTrack, error) {
	return r.GetRequest(ctx, id)
}

// stubSpotify cans every Spotify call the server makes.
type stubSpotify struct {
	profile    *spotify.Profile
	profileErr error
	tracks     []spotify.Track
	searchErr  error
	trackByID  map[string]*spotify.Track
	playlists  map[string]*spotify.Playlist
	devices    []spotify.Device
	snapshotID string
	queueErr   error
	queued     []string
	pushed     [][]string
}

func (s *stubSpotify) MyProfile(context.Context, string) (*spotify.Profile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

func (s *stubSpotify) PublicProfile(_ context.Context, id string) (*spotify.Profile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return &spotify.Profile{ID: id}, nil
}

func (s *stubSpotify) SearchTracks(context.Context, string) ([]spotify.Track, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.tracks, nil
}

func (s *stubSpotify) NewReleaseTracks(context.Context) ([]spotify.Track, error) {
	return s.tracks, nil
}

func (s *stubSpotify) Devices(context.Context, string) ([]spotify.Device, error) {
	return s.devices, nil
}

func (s *stubSpotify) CreatePlaylist(_ context.Context, _, _, name string) (*spotify.Playlist, error) {
	pl := &spotify.Playlist{ID: "pl-" + name, Name: name}
	s.playlists[pl.ID] = pl
	return pl, nil
}

func (s *stubSpotify) PlaylistDetail(_ context.Context, id string) (*spotify.Playlist, error) {
	pl, ok := s.playlists[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return pl, nil
}

func (s *stubSpotify) Track(_ context.Context, id string) (*spotify.Track, error) {
	if t, ok := s.trackByID[id]; ok {
		return t, nil
	}
	return nil, apperr.ErrNotFound
}

func (s *stubSpotify) AddTracksToPlaylist(_ context.Context, _, _ string, uris []string) (string, error) {
	s.pushed = append(s.pushed, uris)
	return s.snapshotID, nil
}

func (s *stubSpotify) QueueTrack(_ context.Context, _, uri string) error {
	if s.queueErr != nil {
		return s.queueErr
	}
	s.queued = append(s.queued, uri)
	return nil
}

type noopUsers struct{}

func (noopUsers) Upsert(context.Context, *db.User) error { return nil }

type testEnv struct {
	router   http.Handler
	stores   *memStores
	spotify  *stubSpotify
	sessions *session.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stores := newMemStores()
	sp := &stubSpotify{
		profile:    &spotify.Profile{ID: "owner-spotify", DisplayName: "Owner"},
		playlists:  make(map[string]*spotify.Playlist),
		trackByID:  make(map[string]*spotify.Track),
		snapshotID: "snap-0",
	}
	log := zap.NewNop().Sugar()
	sessions := session.NewMemoryStore()

	handlers := &Handlers{
		sessions:    sessions,
		spotify:     sp,
		submissions: submission.NewService(stores, requestRepo{stores}, sp, log),
		engine:      moderation.NewEngine(stores, requestRepo{stores}, sp, log),
		users:       noopUsers{},
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		log:         log,
	}
	s := &Server{router: chi.NewRouter(), handlers: handlers, log: log}
	s.setupRoutes()

	return &testEnv{router: s.Router(), stores: stores, spotify: sp, sessions: sessions}
}

func (e *testEnv) post(t *testing.T, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	sess, err := e.sessions.Create(context.Background(), &oauth2.Token{RefreshToken: "refresh"}, userID, "Owner")
	require.NoError(t, err)
	return &http.Cookie{Name: "session_id", Value: sess.ID}
}

func visitorCookie(token string) *http.Cookie {
	return &http.Cookie{Name: identity.CookieName, Value: token}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestOwnerSurfaceRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/listMySubmissions", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
}

func TestOwnerSurfaceRequiresRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	sess, err := env.sessions.Create(context.Background(), &oauth2.Token{}, "owner", "Owner")
	require.NoError(t, err)

	rec := env.post(t, "/api/listMySubmissions", nil, &http.Cookie{Name: "session_id", Value: sess.ID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a session without a Spotify credential is not an owner")
}

func TestVisitorReceivesIdentityCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/getRecommendations", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var issued *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == identity.CookieName {
			issued = c
		}
	}
	require.NotNil(t, issued, "first visit must issue the requester cookie")
	assert.NotEmpty(t, issued.Value)
}

func TestSubmitTrackRequest(t *testing.T) {
	env := newTestEnv(t)
	env.stores.submissions["sub"] = &db.Submission{
		ID: "sub", UserID: "owner", Type: db.SubmissionTypeQueue, Status: db.StatusOngoing,
	}

	rec := env.post(t, "/api/submitTrackRequest",
		map[string]string{"submissionId": "sub", "trackId": "track-1"},
		visitorCookie("tok-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	req, ok := env.stores.requests[out.RequestID]
	require.True(t, ok)
	assert.Equal(t, "tok-1", req.RequestToken)
	assert.Equal(t, db.RequestPending, req.Status)
}

func TestSubmitTrackRequestQuotaExhausted(t *testing.T) {
	env := newTestEnv(t)
	limit := 1
	env.stores.submissions["sub"] = &db.Submission{
		ID: "sub", UserID: "owner", Type: db.SubmissionTypeQueue,
		Status: db.StatusOngoing, PersonRequestLimit: &limit,
	}

	first := env.post(t, "/api/submitTrackRequest",
		map[string]string{"submissionId": "sub", "trackId": "a"}, visitorCookie("tok"))
	require.Equal(t, http.StatusCreated, first.Code)

	second := env.post(t, "/api/submitTrackRequest",
		map[string]string{"submissionId": "sub", "trackId": "b"}, visitorCookie("tok"))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "QUOTA_EXHAUSTED", decodeError(t, second).Code)
}

func TestSubmitTrackRequestValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/submitTrackRequest",
		map[string]string{"submissionId": "sub"}, visitorCookie("tok"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "INVALID_INPUT", body.Code)
	assert.Contains(t, body.Fields, "TrackID")
}

func TestMalformedJSONRejected(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/searchTracks", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
}

func TestUnknownFieldRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/searchTracks", map[string]string{"query": "x", "bogus": "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSubmissionNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/getSubmission", map[string]string{"submissionId": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestGetOwnerProfileUpstreamAuthFailure(t *testing.T) {
	env := newTestEnv(t)
	env.spotify.profileErr = apperr.ErrServiceAuthFailure

	rec := env.post(t, "/api/getOwnerProfile", map[string]string{"spotifyUserId": "someone"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "SERVICE_AUTH_FAILURE", decodeError(t, rec).Code)
}

func TestGetRequestCount(t *testing.T) {
	env := newTestEnv(t)
	env.stores.requests["r1"] = &db.RequestedTrack{
		ID: "r1", SubmissionID: "sub", RequestToken: "tok", Status: db.RequestAccepted,
	}

	rec := env.post(t, "/api/getRequestCount",
		map[string]string{"submissionId": "sub"}, visitorCookie("tok"))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Count)
}

func TestCreateAndListSubmissions(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner")

	rec := env.post(t, "/api/createSubmission", map[string]any{
		"title": "Friday Party", "type": "PLAYLIST", "durationHours": 4, "personRequestLimit": 3,
	}, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		SubmissionID string `json:"submissionId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	sub := env.stores.submissions[created.SubmissionID]
	require.NotNil(t, sub)
	assert.Equal(t, db.SubmissionTypePlaylist, sub.Type)
	require.NotNil(t, sub.SpotifyPlaylistID)
	assert.Equal(t, "owner-spotify", sub.SpotifyUserID)

	list := env.post(t, "/api/listMySubmissions", nil, owner)
	require.Equal(t, http.StatusOK, list.Code)
	var listed struct {
		Submissions []json.RawMessage `json:"submissions"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listed))
	assert.Len(t, listed.Submissions, 1)
}

func TestCreateSubmissionRejectsBadType(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner")

	rec := env.post(t, "/api/createSubmission", map[string]any{
		"title": "x", "type": "MIXTAPE",
	}, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptRequestsFlow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner")

	playlistID := "pl-x"
	env.spotify.playlists[playlistID] = &spotify.Playlist{ID: playlistID}
	env.spotify.snapshotID = "snap-7"
	env.stores.submissions["sub"] = &db.Submission{
		ID: "sub", UserID: "owner", Type: db.SubmissionTypePlaylist,
		SpotifyPlaylistID: &playlistID, Status: db.StatusOngoing,
	}
	env.stores.requests["r1"] = &db.RequestedTrack{
		ID: "r1", SubmissionID: "sub", SpotifyID: "t1", Status: db.RequestPending,
	}

	rec := env.post(t, "/api/acceptRequests", map[string]any{
		"submissionId": "sub",
		"tracks":       []map[string]string{{"requestId": "r1", "uri": "spotify:track:t1"}},
	}, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		SnapshotID string `json:"snapshotId"`
		Accepted   int64  `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "snap-7", result.SnapshotID)
	assert.Equal(t, int64(1), result.Accepted)
	assert.Equal(t, db.RequestAccepted, env.stores.requests["r1"].Status)
}

func TestAcceptToQueueNoActiveDevice(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner")

	env.spotify.queueErr = apperr.ErrNoActiveDevice
	env.stores.submissions["sub"] = &db.Submission{
		ID: "sub", UserID: "owner", Type: db.SubmissionTypeQueue, Status: db.StatusOngoing,
	}
	env.stores.requests["r1"] = &db.RequestedTrack{
		ID: "r1", SubmissionID: "sub", SpotifyID: "t1", Status: db.RequestPending,
	}

	rec := env.post(t, "/api/acceptToQueue", map[string]string{
		"submissionId": "sub", "requestId": "r1", "uri": "spotify:track:t1",
	}, owner)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NO_ACTIVE_DEVICE", decodeError(t, rec).Code)
	assert.Equal(t, db.RequestPending, env.stores.requests["r1"].Status)
}

func TestRejectRequest(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner")

	env.stores.submissions["sub"] = &db.Submission{
		ID: "sub", UserID: "owner", Type: db.SubmissionTypeQueue, Status: db.StatusOngoing,
	}
	env.stores.requests["r1"] = &db.RequestedTrack{
		ID: "r1", SubmissionID: "sub", Status: db.RequestPending,
	}

	rec := env.post(t, "/api/rejectRequest", map[string]string{"requestId": "r1"}, owner)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, db.RequestRejected, env.stores.requests["r1"].Status)
}

func TestSetStatusAndDelete(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner")

	env.stores.submissions["sub"] = &db.Submission{
		ID: "sub", UserID: "owner", Type: db.SubmissionTypeQueue, Status: db.StatusOngoing,
	}

	rec := env.post(t, "/api/setSubmissionStatus",
		map[string]string{"submissionId": "sub", "status": "PAUSED"}, owner)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, db.StatusPaused, env.stores.submissions["sub"].Status)

	rec = env.post(t, "/api/deleteSubmission", map[string]string{"submissionId": "sub"}, owner)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, env.stores.submissions, "sub")
}

func TestListDevices(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner")
	env.spotify.devices = []spotify.Device{{ID: "d1", Name: "Kitchen", Type: "Speaker"}}

	rec := env.post(t, "/api/listDevices", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Devices []spotify.Device `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Devices, 1)
	assert.Equal(t, "Kitchen", out.Devices[0].Name)
}
