package api

import (
	"net/http"

	"battdash/internal/web"
)

// Cache endpoints work in degraded mode; the store needs no Drive session.

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	web.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   s.store.Stats(),
		"entries": s.store.Entries(),
	})
}

func (s *Server) handleCacheClearExpired(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.ClearExpired()
	if err != nil {
		web.Error(w, http.StatusInternalServerError, "cache sweep failed", err.Error())
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"removed": removed,
	})
}
