package api

import (
	"net/http"
	"strings"
	"time"

	"battdash/internal/drive"
	"battdash/internal/fetcher"
	"battdash/internal/web"
)

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	web.JSON(w, http.StatusOK, map[string]any{
		"service": "battdash-api",
		"version": s.version,
		"status":  "running",
		"endpoints": []string{
			"/health",
			"/api/folders",
			"/api/files",
			"/all-csv-files",
			"/api/columns/{fileID}",
			"/api/data/{fileID}",
			"/api/data/combine",
			"/api/download/processed-data",
			"/api/analysis/soc-temperature",
			"/api/analysis/efficiency/{fileID}",
			"/api/analysis/duration/{fileID}",
			"/api/cache/stats",
			"/api/cache/clear-expired",
		},
	})
}

// handleHealth reports degraded (not an error status) when Drive is missing,
// so `battdash start` can tell "up but unauthorized" from "down".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, driveState := "ok", "ready"
	if !s.driveReady() {
		status, driveState = "degraded", "unauthorized"
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.started).Truncate(time.Second).String(),
		"drive":   driveState,
		"cache":   s.store.Stats(),
	})
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	if !s.requireDrive(w) {
		return
	}
	v, err := s.fetch.Fetch(r.Context(), fetcher.KeyBatteryFolders, map[string]string{
		fetcher.ParamFolderID: s.cfg.Drive.FolderID,
	})
	if err != nil {
		s.writeDriveError(w, err, "failed to list battery test folders")
		return
	}
	folders, _ := v.([]drive.Folder)
	web.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"folders": folders,
		"count":   len(folders),
	})
}

func (s *Server) handleSubfolders(w http.ResponseWriter, r *http.Request) {
	if !s.requireDrive(w) {
		return
	}
	v, err := s.fetch.Fetch(r.Context(), fetcher.KeyFolderSubfolders, map[string]string{
		fetcher.ParamFolderID: r.PathValue("folderID"),
	})
	if err != nil {
		s.writeDriveError(w, err, "failed to list subfolders")
		return
	}
	folders, _ := v.([]drive.Folder)
	web.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"folders": folders,
		"count":   len(folders),
	})
}

func (s *Server) handleFolderFiles(w http.ResponseWriter, r *http.Request) {
	if !s.requireDrive(w) {
		return
	}
	v, err := s.fetch.Fetch(r.Context(), fetcher.KeyFolderCSVs, map[string]string{
		fetcher.ParamFolderID: r.PathValue("folderID"),
	})
	if err != nil {
		s.writeDriveError(w, err, "failed to list folder files")
		return
	}
	files, _ := v.([]drive.File)
	web.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"files":   files,
		"count":   len(files),
	})
}

// handleFileQuery serves /api/files: a name search when search_pattern is
// set, otherwise the CSVs of folder_id (default: the configured root).
func (s *Server) handleFileQuery(w http.ResponseWriter, r *http.Request) {
	if !s.requireDrive(w) {
		return
	}
	q := r.URL.Query()
	folderID := q.Get("folder_id")
	if folderID == "" {
		folderID = s.cfg.Drive.FolderID
	}

	var (
		v   any
		err error
	)
	if pattern := strings.TrimSpace(q.Get("search_pattern")); pattern != "" {
		v, err = s.fetch.Fetch(r.Context(), fetcher.KeySearch, map[string]string{
			fetcher.ParamQuery:    pattern,
			fetcher.ParamFolderID: folderID,
		})
	} else {
		v, err = s.fetch.Fetch(r.Context(), fetcher.KeyFolderCSVs, map[string]string{
			fetcher.ParamFolderID: folderID,
		})
	}
	if err != nil {
		s.writeDriveError(w, err, "failed to list files")
		return
	}
	files, _ := v.([]drive.File)
	web.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"files":   files,
		"count":   len(files),
	})
}

// indexedFile is a Drive file plus whether a valid cached frame exists for it.
type indexedFile struct {
	drive.File
	Cached bool `json:"cached"`
}

func (s *Server) handleAllCSVFiles(w http.ResponseWriter, r *http.Request) {
	if !s.requireDrive(w) {
		return
	}
	v, err := s.fetch.Fetch(r.Context(), fetcher.KeyCSVIndex, map[string]string{
		fetcher.ParamFolderID: s.cfg.Drive.FolderID,
	})
	if err != nil {
		s.writeDriveError(w, err, "failed to index CSV files")
		return
	}
	files, _ := v.([]drive.File)
	out := make([]indexedFile, 0, len(files))
	cached := 0
	for _, f := range files {
		ok := s.store.Valid(f.ID)
		if ok {
			cached++
		}
		out = append(out, indexedFile{File: f, Cached: ok})
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"files":        out,
		"count":        len(out),
		"cached_count": cached,
	})
}
