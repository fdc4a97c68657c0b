// Package server exposes transform estimation, label storage and previews
// as a JSON HTTP API.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/hytous/RigidLabeler/internal/config"
	"github.com/hytous/RigidLabeler/internal/labels"
	"github.com/hytous/RigidLabeler/internal/logging"
	"github.com/hytous/RigidLabeler/internal/preview"
	"github.com/hytous/RigidLabeler/internal/transform"
)

const shutdownTimeout = 5 * time.Second

// Server serves the RigidLabeler API.
type Server struct {
	cfg      *config.Config
	store    *labels.Store
	previews *preview.Generator
	handler  http.Handler
}

// New creates a server for the given configuration. Paths in cfg are used
// as they are; resolve them before calling New.
func New(cfg *config.Config) *Server {
	s := &Server{
		cfg:      cfg,
		store:    labels.NewStore(cfg.Paths.LabelsRoot),
		previews: preview.NewGenerator(cfg.Paths.TempRoot, cfg.Preview.BoardSize),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /compute/transform", s.handleCompute)
	mux.HandleFunc("POST /compute/rigid", s.handleCompute)
	mux.HandleFunc("POST /transform/convert", s.handleConvert)
	mux.HandleFunc("POST /transform/residuals", s.handleResiduals)
	mux.HandleFunc("POST /labels/save", s.handleSaveLabel)
	mux.HandleFunc("GET /labels/load", s.handleLoadLabel)
	mux.HandleFunc("GET /labels/list", s.handleListLabels)
	mux.HandleFunc("DELETE /labels/delete", s.handleDeleteLabel)
	mux.HandleFunc("POST /warp/preview", s.handleWarpPreview)
	mux.HandleFunc("POST /warp/checkerboard", s.handleCheckerboard)

	s.handler = withCORS(withLogging(withRecover(mux)))
	return s
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.cfg.Addr())
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("RigidLabeler backend listening on %s", ln.Addr())
	logging.Info("Labels root: %s", s.cfg.Paths.LabelsRoot)
	logging.Info("Temp root: %s", s.cfg.Paths.TempRoot)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logging.Info("RigidLabeler backend shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) origin(useCenter *bool) transform.Origin {
	center := s.cfg.Preview.CenterOrigin
	if useCenter != nil {
		center = *useCenter
	}
	if center {
		return transform.OriginCenter
	}
	return transform.OriginCorner
}
