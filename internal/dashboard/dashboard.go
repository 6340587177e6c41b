// Package dashboard serves the battdash web UI: an embedded single-page
// frontend over the backend API plus a server-side summary endpoint, so the
// status line renders even when the browser cannot reach the API directly.
package dashboard

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	"battdash/internal/config"
	"battdash/internal/web"
)

const drainTimeout = 10 * time.Second

// refreshSeconds is the page's health poll interval, handed to the frontend
// through /config.json.
const refreshSeconds = 30

//go:embed assets
var embedded embed.FS

var assets = func() fs.FS {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}()

type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	version string
	started time.Time
	summary *summaryClient
}

func NewServer(cfg *config.Config, version string, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("dashboard: config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		version: version,
		started: time.Now(),
		summary: newSummaryClient(cfg.BackendURL(), logger),
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServerFS(assets))
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /config.json", s.handleConfig)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	return web.Chain(mux, s.logger)
}

// ListenAndServe runs the dashboard until ctx is canceled, then drains for
// up to drainTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.FrontendAddr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("dashboard listening",
		zap.String("addr", srv.Addr),
		zap.String("version", s.version),
		zap.String("backend", s.cfg.BackendURL()))
	return web.Serve(ctx, srv, drainTimeout, s.logger)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	web.JSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Truncate(time.Second).String(),
	})
}

// handleConfig tells the page where the backend lives and how often to poll.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	web.JSON(w, http.StatusOK, map[string]any{
		"api_base_url":    s.cfg.BackendURL(),
		"version":         s.version,
		"refresh_seconds": refreshSeconds,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	web.JSON(w, http.StatusOK, s.summary.Summary(r.Context()))
}
