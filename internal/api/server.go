// Package api implements the battdash backend: a JSON HTTP API that browses
// the Google Drive folder tree, serves parsed battery test data with
// per-request preprocessing, combines datasets, and runs the analysis
// endpoints the dashboard plots from.
//
// The server runs in degraded mode when no authorized Drive session exists:
// listing and data endpoints answer 503, but the banner, health, cache
// endpoints, and any already-cached file keep working.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"battdash/internal/config"
	"battdash/internal/dataset"
	"battdash/internal/drive"
	"battdash/internal/fetcher"
	"battdash/internal/store"
	"battdash/internal/web"
)

// drainTimeout bounds graceful shutdown; in-flight downloads past this are cut.
const drainTimeout = 10 * time.Second

// Server holds the backend's dependencies. fetch is nil in degraded mode.
type Server struct {
	cfg     *config.Config
	fetch   *fetcher.Fetcher
	store   *store.Store
	logger  *zap.Logger
	version string
	started time.Time
}

// NewServer wires the backend. fetch may be nil (degraded mode); cfg and st
// may not.
func NewServer(cfg *config.Config, fetch *fetcher.Fetcher, st *store.Store, version string, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("api: config is nil")
	}
	if st == nil {
		return nil, errors.New("api: store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		fetch:   fetch,
		store:   st,
		logger:  logger,
		version: version,
		started: time.Now(),
	}, nil
}

// driveReady reports whether Drive-backed endpoints can serve.
func (s *Server) driveReady() bool { return s.fetch != nil }

// Handler builds the route table. Legacy paths and their /api twins share one
// handler each; both produce the {"success": true, ...} envelope.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleBanner)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /folders", s.handleFolders)
	mux.HandleFunc("GET /api/folders", s.handleFolders)
	mux.HandleFunc("GET /subfolders/{folderID}", s.handleSubfolders)
	mux.HandleFunc("GET /files/{folderID}", s.handleFolderFiles)
	mux.HandleFunc("GET /api/files", s.handleFileQuery)
	mux.HandleFunc("GET /all-csv-files", s.handleAllCSVFiles)

	mux.HandleFunc("GET /columns/{fileID}", s.handleColumns)
	mux.HandleFunc("GET /api/columns/{fileID}", s.handleColumns)
	mux.HandleFunc("GET /data/{fileID}", s.handleData)
	mux.HandleFunc("GET /api/data/{fileID}", s.handleData)
	mux.HandleFunc("POST /combine", s.handleCombine)
	mux.HandleFunc("POST /api/data/combine", s.handleCombine)
	mux.HandleFunc("GET /download/processed-data", s.handleDownload)
	mux.HandleFunc("POST /api/download/processed-data", s.handleDownload)

	mux.HandleFunc("POST /api/analysis/soc-temperature", s.handleSOCTemperature)
	mux.HandleFunc("GET /api/analysis/efficiency/{fileID}", s.handleEfficiency)
	mux.HandleFunc("GET /api/analysis/duration/{fileID}", s.handleDuration)

	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /api/cache/clear-expired", s.handleCacheClearExpired)

	return web.Chain(mux, s.logger)
}

// WarmCache starts a background preload of the newest uncached CSVs. No-op
// when disabled or degraded.
func (s *Server) WarmCache(ctx context.Context) {
	if !s.driveReady() || s.cfg.Cache.Preload <= 0 {
		return
	}
	go func() {
		v, err := s.fetch.Fetch(ctx, fetcher.KeyCSVIndex, map[string]string{
			fetcher.ParamFolderID: s.cfg.Drive.FolderID,
		})
		if err != nil {
			s.logger.Warn("preload listing failed", zap.Error(err))
			return
		}
		files, ok := v.([]drive.File)
		if !ok {
			return
		}
		s.fetch.Preload(ctx, files, s.cfg.Cache.Preload, s.cfg.Cache.PreloadDelay)
	}()
}

// ListenAndServe runs the backend until ctx is canceled, then drains for up
// to drainTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.BackendAddr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("backend listening",
		zap.String("addr", srv.Addr),
		zap.String("version", s.version),
		zap.Bool("drive", s.driveReady()))
	return web.Serve(ctx, srv, drainTimeout, s.logger)
}

// fetchFrame resolves a file ID to its parsed frame. In degraded mode only
// cached frames are served. On failure it writes the error response and
// returns false.
func (s *Server) fetchFrame(w http.ResponseWriter, r *http.Request, fileID string) (*dataset.Frame, bool) {
	if fileID == "" {
		web.Error(w, http.StatusBadRequest, "file_id is required", "")
		return nil, false
	}
	if !s.driveReady() {
		if f, ok := s.store.Get(fileID); ok {
			return f, true
		}
		web.Error(w, http.StatusServiceUnavailable, driveUnavailableMsg,
			"file "+fileID+" is not cached and Drive is not authorized")
		return nil, false
	}
	v, err := s.fetch.Fetch(r.Context(), fetcher.KeyFileFrame, map[string]string{
		fetcher.ParamFileID: fileID,
	})
	if err != nil {
		s.writeDriveError(w, err, "failed to fetch file "+fileID)
		return nil, false
	}
	f, ok := v.(*dataset.Frame)
	if !ok {
		web.Error(w, http.StatusInternalServerError, "unexpected fetch result", fmt.Sprintf("%T", v))
		return nil, false
	}
	return f, true
}

// displayName prefers the cached file name over the opaque Drive ID.
func (s *Server) displayName(fileID string) string {
	if meta, ok := s.store.Metadata(fileID); ok && meta.FileName != "" {
		return meta.FileName
	}
	return fileID
}
