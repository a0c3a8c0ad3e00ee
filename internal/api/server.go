// Package api exposes the submission engine as an RPC-style JSON surface
// plus the Spotify OAuth login flow.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jukedrop/jukedrop/internal/db"
	"github.com/jukedrop/jukedrop/internal/identity"
	"github.com/jukedrop/jukedrop/internal/moderation"
	"github.com/jukedrop/jukedrop/internal/session"
	"github.com/jukedrop/jukedrop/internal/spotify"
	"github.com/jukedrop/jukedrop/internal/submission"
)

// SpotifyGateway is the slice of the Spotify client the handlers call
// directly.
type SpotifyGateway interface {
	MyProfile(ctx context.Context, refreshToken string) (*spotify.Profile, error)
	PublicProfile(ctx context.Context, spotifyUserID string) (*spotify.Profile, error)
	SearchTracks(ctx context.Context, query string) ([]spotify.Track, error)
	NewReleaseTracks(ctx context.Context) ([]spotify.Track, error)
	Devices(ctx context.Context, refreshToken string) ([]spotify.Device, error)
}

// UserStore caches owner profiles at login.
type UserStore interface {
	Upsert(ctx context.Context, user *db.User) error
}

// ServerConfig wires the server's dependencies.
type ServerConfig struct {
	Addr        string
	Sessions    session.Manager
	Spotify     *spotify.Client
	Submissions *submission.Service
	Moderation  *moderation.Engine
	Users       UserStore
	Log         *zap.SugaredLogger
}

// Server is the HTTP server for the application.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	log      *zap.SugaredLogger
}

// NewServer creates a configured server.
func NewServer(cfg ServerConfig) *Server {
	handlers := &Handlers{
		auth:        cfg.Spotify.Auth(),
		sessions:    cfg.Sessions,
		spotify:     cfg.Spotify,
		submissions: cfg.Submissions,
		engine:      cfg.Moderation,
		users:       cfg.Users,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		log:         cfg.Log,
	}

	router := chi.NewRouter()
	s := &Server{
		router:   router,
		handlers: handlers,
		log:      cfg.Log,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	h := s.handlers

	// OAuth flow
	s.router.Get("/auth/login", h.Login)
	s.router.Get("/callback", h.Callback)
	s.router.Post("/auth/logout", h.Logout)

	s.router.Route("/api", func(r chi.Router) {
		// Visitor surface: no session, but every request gets (or keeps)
		// the anonymous requester token.
		r.Group(func(r chi.Router) {
			r.Use(identity.Middleware)
			r.Post("/submitTrackRequest", h.SubmitTrackRequest)
			r.Post("/searchTracks", h.SearchTracks)
			r.Post("/getSubmission", h.GetSubmission)
			r.Post("/getSubmissionPlaylist", h.GetSubmissionPlaylist)
			r.Post("/getRecommendations", h.GetRecommendations)
			r.Post("/getOwnerProfile", h.GetOwnerProfile)
			r.Post("/getRequestCount", h.GetRequestCount)
		})

		// Owner surface: session plus linked Spotify credential required.
		r.Group(func(r chi.Router) {
			r.Use(h.requireOwner)
			r.Post("/listMySubmissions", h.ListMySubmissions)
			r.Post("/getSubmissionDetail", h.GetSubmissionDetail)
			r.Post("/listPendingRequests", h.ListPendingRequests)
			r.Post("/createSubmission", h.CreateSubmission)
			r.Post("/acceptRequests", h.AcceptRequests)
			r.Post("/acceptToQueue", h.AcceptToQueue)
			r.Post("/rejectRequest", h.RejectRequest)
			r.Post("/setSubmissionStatus", h.SetSubmissionStatus)
			r.Post("/deleteSubmission", h.DeleteSubmission)
			r.Post("/listDevices", h.ListDevices)
		})
	})
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the server and blocks until an interrupt, then shuts down
// gracefully.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.log.Infow("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
