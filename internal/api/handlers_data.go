package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"battdash/internal/dataset"
	"battdash/internal/web"
)

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.fetchFrame(w, r, r.PathValue("fileID"))
	if !ok {
		return
	}
	names := frame.Columns()
	web.JSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"columns":       names,
		"column_types":  dataset.Classify(names),
		"total_columns": len(names),
	})
}

// handleData serves one file's records. Query parameters:
//
//	selected_columns  comma list; time columns are always retained
//	preprocess        bool, default true
//	resample          seconds between samples, 0 disables (needs preprocess)
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	preprocess := true
	if raw := q.Get("preprocess"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			web.Error(w, http.StatusBadRequest, "invalid preprocess value", raw)
			return
		}
		preprocess = b
	}
	resample, ok := parseResample(w, q.Get("resample"))
	if !ok {
		return
	}

	frame, ok := s.fetchFrame(w, r, r.PathValue("fileID"))
	if !ok {
		return
	}

	if cols := splitList(q.Get("selected_columns")); len(cols) > 0 {
		frame = selectWithTime(frame, cols)
	}
	if preprocess {
		frame = dataset.Preprocess(frame)
		if resample > 0 {
			frame = dataset.Resample(frame, resample)
		}
	}

	names := frame.Columns()
	web.JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"data":         frame.Records(0),
		"columns":      names,
		"column_types": dataset.Classify(names),
		"statistics":   dataset.Describe(frame),
	})
}

// combineRequest is the body of POST /combine, /api/data/combine, and
// /api/download/processed-data. Labels defaults to Dataset_1..N.
type combineRequest struct {
	FileIDs         []string `json:"file_ids"`
	Labels          []string `json:"labels,omitempty"`
	SelectedColumns []string `json:"selected_columns,omitempty"`
	Resample        float64  `json:"resample,omitempty"`
}

func (s *Server) handleCombine(w http.ResponseWriter, r *http.Request) {
	var req combineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	combined, ok := s.combineFrames(w, r, req)
	if !ok {
		return
	}
	names := combined.Frame.Columns()
	web.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    combined.Records(0),
		"spans":   combined.Spans,
		"statistics": map[string]any{
			"rows":           combined.Frame.NumRows(),
			"columns":        names,
			"column_types":   dataset.Classify(names),
			"datasets_count": len(combined.Spans),
		},
	})
}

// handleDownload streams the combined selection as a CSV attachment. GET
// takes the combine parameters as query values, POST as a JSON body.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req combineRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			web.Error(w, http.StatusBadRequest, "invalid JSON body", err.Error())
			return
		}
	} else {
		q := r.URL.Query()
		req.FileIDs = splitList(q.Get("file_ids"))
		req.SelectedColumns = splitList(q.Get("selected_columns"))
		resample, ok := parseResample(w, q.Get("resample"))
		if !ok {
			return
		}
		req.Resample = resample
	}

	combined, ok := s.combineFrames(w, r, req)
	if !ok {
		return
	}

	name := fmt.Sprintf("processed_data_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := combined.WriteCSV(w); err != nil {
		s.logger.Warn("download aborted", zap.String("file", name), zap.Error(err))
	}
}

// combineFrames fetches, trims, preprocesses, and concatenates the requested
// files. On failure it writes the error response and returns false.
func (s *Server) combineFrames(w http.ResponseWriter, r *http.Request, req combineRequest) (*dataset.Combined, bool) {
	if len(req.FileIDs) == 0 {
		web.Error(w, http.StatusBadRequest, "file_ids is required", "")
		return nil, false
	}
	if req.Resample < 0 {
		web.Error(w, http.StatusBadRequest, "invalid resample value", "resample is seconds; 0 disables")
		return nil, false
	}

	items := make([]dataset.Labeled, 0, len(req.FileIDs))
	for i, fileID := range req.FileIDs {
		frame, ok := s.fetchFrame(w, r, fileID)
		if !ok {
			return nil, false
		}
		if len(req.SelectedColumns) > 0 {
			frame = selectWithTime(frame, req.SelectedColumns)
		}
		frame = dataset.Preprocess(frame)
		if req.Resample > 0 {
			frame = dataset.Resample(frame, req.Resample)
		}
		label := fmt.Sprintf("Dataset_%d", i+1)
		if i < len(req.Labels) && strings.TrimSpace(req.Labels[i]) != "" {
			label = strings.TrimSpace(req.Labels[i])
		}
		items = append(items, dataset.Labeled{Label: label, Frame: frame})
	}

	combined, err := dataset.Combine(items)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "combine failed", err.Error())
		return nil, false
	}
	return combined, true
}

// selectWithTime keeps the requested columns plus any time-classified ones so
// preprocessing and resampling still have an index. Requested names missing
// from the frame are dropped; if nothing survives the frame stays whole.
func selectWithTime(f *dataset.Frame, requested []string) *dataset.Frame {
	names := f.Columns()
	want := append(append([]string(nil), requested...), dataset.Classify(names).Time...)

	seen := make(map[string]struct{}, len(want))
	keep := make([]string, 0, len(want))
	for _, name := range want {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if f.Has(name) {
			keep = append(keep, name)
		}
	}
	if len(keep) == 0 {
		return f
	}
	return f.Select(keep)
}

func parseResample(w http.ResponseWriter, raw string) (float64, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		web.Error(w, http.StatusBadRequest, "invalid resample value", "resample is seconds; 0 disables")
		return 0, false
	}
	return v, true
}
