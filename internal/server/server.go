// Package server exposes the file index and recall search over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Paintersrp/recall/internal/auth"
	"github.com/Paintersrp/recall/internal/cache"
	"github.com/Paintersrp/recall/internal/search"
	indexsvc "github.com/Paintersrp/recall/internal/services/index"
	recallsvc "github.com/Paintersrp/recall/internal/services/recall"
)

// Files is the part of the file index the API serves.
type Files interface {
	Snapshot() indexsvc.Snapshot
	Changes(since int64) indexsvc.Change
	ReadFile(path string) (string, error)
	Subscribe(fn func(indexsvc.Snapshot)) func()
}

// Recall answers recall queries.
type Recall interface {
	Search(raw search.RawRequest) ([]search.Result, error)
	Stats() recallsvc.Stats
}

type Config struct {
	Addr string
	// Auth guards every /api route when set.
	Auth    *auth.Authenticator
	Version string
}

type Server struct {
	cfg    Config
	files  Files
	recall Recall
	reader cache.Reader
	logger *slog.Logger
	hub    *hub
}

func New(cfg Config, files Files, recall Recall, reader cache.Reader, logger *slog.Logger) *Server {
	if reader == nil {
		reader = cache.OSReader{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		files:  files,
		recall: recall,
		reader: reader,
		logger: logger,
		hub:    newHub(logger),
	}
}

// Handler returns the routed, instrumented API handler.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/files", s.handleFiles)
	api.HandleFunc("GET /api/files/changes", s.handleChanges)
	api.HandleFunc("GET /api/file", s.handleFile)
	api.HandleFunc("GET /api/search", s.handleSearch)
	api.HandleFunc("GET /api/recall", s.handleRecallQuery)
	api.HandleFunc("POST /api/recall", s.handleRecallBody)
	api.HandleFunc("GET /api/recall/stats", s.handleRecallStats)
	api.HandleFunc("GET /api/ws", s.handleWebsocket)

	var guarded http.Handler = api
	if s.cfg.Auth != nil {
		guarded = s.cfg.Auth.Middleware(api)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/api/", guarded)

	return requestLogger(s.logger, mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully. Snapshot
// changes are pushed to websocket clients while it runs.
func (s *Server) Run(ctx context.Context) error {
	unsubscribe := s.files.Subscribe(func(snap indexsvc.Snapshot) {
		s.hub.broadcast(changeEvent{
			Type:      "snapshot",
			Version:   snap.Version,
			UpdatedAt: snap.UpdatedAt,
			Files:     len(snap.Files),
		})
	})
	defer unsubscribe()

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", s.cfg.Addr, "auth", s.cfg.Auth != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server: stopped")
	return nil
}
