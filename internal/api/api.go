// Package api exposes the EchoGuide HTTP surface.
//
// It wires the interaction flow, user registration, and captured-image
// serving onto a plain net/http mux.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/EchoGuide/internal/models"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// FlowRunner runs one full voice interaction and returns the final persisted
// state.
type FlowRunner interface {
	Run(ctx context.Context) (models.InteractionState, error)
}

// UserStore is the slice of the persistence layer the handlers need.
type UserStore interface {
	SaveUserName(name string) error
	SaveLanguage(language string) error
	LoadUserName() (*models.UserName, error)
}

// ModelDownloader makes the recognition model for a language available.
type ModelDownloader interface {
	EnsureModel(ctx context.Context, setting models.LanguageSetting) error
}

// CameraStopper releases the capture device. Used for the best-effort stop
// when a flow fails at the HTTP boundary.
type CameraStopper interface {
	Stop()
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr     string
	ImageDir string
}

// Option configures API server options.
type Option func(*Opts)

// WithAddr overrides the default listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithImageDir sets the directory captured images are served from.
func WithImageDir(dir string) Option {
	return func(o *Opts) { o.ImageDir = dir }
}

// Server handles the HTTP endpoints.
type Server struct {
	flows      FlowRunner
	store      UserStore
	downloader ModelDownloader
	camera     CameraStopper
	imageDir   string
	httpServer *http.Server
}

// NewServer creates a Server over the given collaborators.
func NewServer(flows FlowRunner, store UserStore, downloader ModelDownloader, camera CameraStopper, opts ...Option) *Server {
	options := Opts{Addr: DefaultAddr, ImageDir: "captured_images"}
	for _, opt := range opts {
		opt(&options)
	}

	s := &Server{
		flows:      flows,
		store:      store,
		downloader: downloader,
		camera:     camera,
		imageDir:   options.ImageDir,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/start_interaction", s.startInteractionHandler)
	mux.HandleFunc("/add_user", s.addUserHandler)
	mux.HandleFunc("/captured_images/", s.imageHandler)

	s.httpServer = &http.Server{
		Addr:              options.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	slog.Info("Server.Run: EchoGuide API listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Server.Shutdown: stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}
