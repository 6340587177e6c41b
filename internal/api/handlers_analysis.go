package api

import (
	"encoding/json"
	"net/http"

	"battdash/internal/dataset"
	"battdash/internal/web"
)

// socTempRequest asks for SOC vs temperature profiles over one or more
// files. TempColumn overrides the automatic temperature column pick.
type socTempRequest struct {
	FileIDs    []string `json:"file_ids"`
	TempColumn string   `json:"temp_column,omitempty"`
}

func (s *Server) handleSOCTemperature(w http.ResponseWriter, r *http.Request) {
	var req socTempRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if len(req.FileIDs) == 0 {
		web.Error(w, http.StatusBadRequest, "file_ids is required", "")
		return
	}

	profiles := make([]dataset.SOCTemperatureProfile, 0, len(req.FileIDs))
	for _, fileID := range req.FileIDs {
		frame, ok := s.fetchFrame(w, r, fileID)
		if !ok {
			return
		}
		profile, err := dataset.SOCTemperature(s.displayName(fileID), dataset.Preprocess(frame), req.TempColumn)
		if err != nil {
			web.Error(w, http.StatusBadRequest, "analysis failed for file "+fileID, err.Error())
			return
		}
		profiles = append(profiles, profile)
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"profiles": profiles,
		"count":    len(profiles),
	})
}

func (s *Server) handleEfficiency(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileID")
	frame, ok := s.fetchFrame(w, r, fileID)
	if !ok {
		return
	}
	eff, err := dataset.RoundTripEfficiency(dataset.Preprocess(frame))
	if err != nil {
		web.Error(w, http.StatusBadRequest, "analysis failed for file "+fileID, err.Error())
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"file_id":    fileID,
		"file_name":  s.displayName(fileID),
		"efficiency": eff,
	})
}

func (s *Server) handleDuration(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileID")
	frame, ok := s.fetchFrame(w, r, fileID)
	if !ok {
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"file_id":   fileID,
		"file_name": s.displayName(fileID),
		"duration":  dataset.TestDuration(dataset.Preprocess(frame)),
	})
}
