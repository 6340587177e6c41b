package api

import (
	"net/http"
	"strings"

	"battdash/internal/drive"
	"battdash/internal/web"
)

const driveUnavailableMsg = "Google Drive service not available"

// writeDriveError maps a fetch failure onto the API contract: 404 for a
// missing file or folder, 502 for everything else upstream.
func (s *Server) writeDriveError(w http.ResponseWriter, err error, msg string) {
	if drive.IsNotFound(err) {
		web.Error(w, http.StatusNotFound, "not found", err.Error())
		return
	}
	web.Error(w, http.StatusBadGateway, msg, err.Error())
}

// requireDrive guards Drive-backed endpoints in degraded mode.
func (s *Server) requireDrive(w http.ResponseWriter) bool {
	if s.driveReady() {
		return true
	}
	web.Error(w, http.StatusServiceUnavailable, driveUnavailableMsg,
		"no authorized Drive session; run `battdash auth`")
	return false
}

// splitList parses a comma-separated query value, dropping empty entries.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
