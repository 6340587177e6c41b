package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"battdash/internal/config"
	"battdash/internal/dataset"
	"battdash/internal/drive"
	"battdash/internal/fetcher"
	_ "battdash/internal/fetcher/providers"
	"battdash/internal/store"
)

// fakeDrive is a canned Drive backend for handler tests.
type fakeDrive struct {
	files   map[string][]drive.File
	folders map[string][]drive.Folder
	index   []drive.File
	battery []drive.Folder
	found   []drive.File
	meta    map[string]drive.File
	content map[string][]byte
	err     error
}

func (d *fakeDrive) ListFolder(_ context.Context, folderID string) ([]drive.File, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.files[folderID], nil
}

func (d *fakeDrive) Subfolders(_ context.Context, folderID string) ([]drive.Folder, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.folders[folderID], nil
}

func (d *fakeDrive) CSVFiles(_ context.Context, folderID string) ([]drive.File, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []drive.File
	for _, f := range d.files[folderID] {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			out = append(out, f)
		}
	}
	return out, nil
}

func (d *fakeDrive) AllCSVFiles(_ context.Context, _ string) ([]drive.File, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.index, nil
}

func (d *fakeDrive) BatteryTestFolders(_ context.Context, _ string, _ int) ([]drive.Folder, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.battery, nil
}

func (d *fakeDrive) Search(_ context.Context, _, _ string) ([]drive.File, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.found, nil
}

func (d *fakeDrive) FileMeta(_ context.Context, fileID string) (drive.File, error) {
	if d.err != nil {
		return drive.File{}, d.err
	}
	if f, ok := d.meta[fileID]; ok {
		return f, nil
	}
	return drive.File{}, &googleapi.Error{Code: http.StatusNotFound, Message: "file not found: " + fileID}
}

func (d *fakeDrive) Download(_ context.Context, fileID string) ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	if raw, ok := d.content[fileID]; ok {
		return raw, nil
	}
	return nil, &googleapi.Error{Code: http.StatusNotFound, Message: "file not found: " + fileID}
}

// sampleCSV exercises every column group the handlers touch: time, current,
// voltage, SOC, and temperature.
const sampleCSV = `Date_Time,Battery_Current_avg,Battery_Voltage_avg,Pack_SOC,Battery_Temperature_Max_avg
0,2,50,50,25
10,2,50,50,25
20,-1,50,50,26
30,-1,50,50,26
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Workspace = t.TempDir()
	cfg.Drive.FolderID = "root"
	return cfg
}

// testServer builds a ready server over the fake Drive.
func testServer(t *testing.T, fake *fakeDrive) *Server {
	t.Helper()
	st, err := store.Open(t.TempDir(), time.Hour, 5, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	f := fetcher.NewFetcher(fake, st, fetcher.NewPacer(0), zap.NewNop())
	srv, err := NewServer(testConfig(t), f, st, "1.2.3-test", zap.NewNop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

// degradedServer builds a server with no Drive session.
func degradedServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir(), time.Hour, 5, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	srv, err := NewServer(testConfig(t), nil, st, "1.2.3-test", zap.NewNop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, st
}

// doJSON performs a request against the handler and decodes the JSON body.
func doJSON(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s response: %v\nbody: %s", method, path, err, rec.Body.String())
		}
	}
	return rec.Code, out
}

func TestServer_Banner(t *testing.T) {
	h := testServer(t, &fakeDrive{}).Handler()

	code, body := doJSON(t, h, http.MethodGet, "/", "")
	if code != http.StatusOK {
		t.Fatalf("GET /: got status %d, want %d", code, http.StatusOK)
	}
	if got := body["service"]; got != "battdash-api" {
		t.Fatalf("service: got %v, want battdash-api", got)
	}
	if got := body["version"]; got != "1.2.3-test" {
		t.Fatalf("version: got %v, want 1.2.3-test", got)
	}

	// The banner pattern is exact; unknown paths are 404, not banner.
	code, _ = doJSON(t, h, http.MethodGet, "/nope", "")
	if code != http.StatusNotFound {
		t.Fatalf("GET /nope: got status %d, want %d", code, http.StatusNotFound)
	}
}

func TestServer_Health(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		h := testServer(t, &fakeDrive{}).Handler()
		code, body := doJSON(t, h, http.MethodGet, "/health", "")
		if code != http.StatusOK {
			t.Fatalf("GET /health: got status %d, want %d", code, http.StatusOK)
		}
		if got := body["status"]; got != "ok" {
			t.Fatalf("status: got %v, want ok", got)
		}
		if got := body["drive"]; got != "ready" {
			t.Fatalf("drive: got %v, want ready", got)
		}
	})

	t.Run("degraded", func(t *testing.T) {
		srv, _ := degradedServer(t)
		code, body := doJSON(t, srv.Handler(), http.MethodGet, "/health", "")
		if code != http.StatusOK {
			t.Fatalf("GET /health: got status %d, want %d", code, http.StatusOK)
		}
		if got := body["status"]; got != "degraded" {
			t.Fatalf("status: got %v, want degraded", got)
		}
		if got := body["drive"]; got != "unauthorized" {
			t.Fatalf("drive: got %v, want unauthorized", got)
		}
		cache, ok := body["cache"].(map[string]any)
		if !ok {
			t.Fatalf("cache stats missing from health body: %v", body)
		}
		if _, ok := cache["total_cached_files"]; !ok {
			t.Fatalf("cache stats incomplete: %v", cache)
		}
	})
}

func TestServer_Folders(t *testing.T) {
	fake := &fakeDrive{battery: []drive.Folder{
		{ID: "f1", Name: "Battery A", Path: "Battery A", FileCount: 3},
		{ID: "f2", Name: "Battery B", Path: "Battery B", FileCount: 1},
	}}
	h := testServer(t, fake).Handler()

	for _, path := range []string{"/folders", "/api/folders"} {
		code, body := doJSON(t, h, http.MethodGet, path, "")
		if code != http.StatusOK {
			t.Fatalf("GET %s: got status %d, want %d", path, code, http.StatusOK)
		}
		if got := body["success"]; got != true {
			t.Fatalf("GET %s success: got %v, want true", path, got)
		}
		if got := body["count"]; got != float64(2) {
			t.Fatalf("GET %s count: got %v, want 2", path, got)
		}
	}
}

func TestServer_Subfolders(t *testing.T) {
	fake := &fakeDrive{folders: map[string][]drive.Folder{
		"f1": {{ID: "f1a", Name: "Cycle Tests", Path: "Battery A/Cycle Tests"}},
	}}
	h := testServer(t, fake).Handler()

	code, body := doJSON(t, h, http.MethodGet, "/subfolders/f1", "")
	if code != http.StatusOK {
		t.Fatalf("got status %d, want %d", code, http.StatusOK)
	}
	if got := body["count"]; got != float64(1) {
		t.Fatalf("count: got %v, want 1", got)
	}
}

func TestServer_FileQuery(t *testing.T) {
	fake := &fakeDrive{
		files: map[string][]drive.File{
			"f1": {
				{ID: "a", Name: "run1.csv"},
				{ID: "b", Name: "notes.txt"},
				{ID: "c", Name: "run2.csv"},
			},
		},
		found: []drive.File{
			{ID: "a", Name: "run1.csv"},
			{ID: "d", Name: "run1_report.pdf"},
		},
	}
	h := testServer(t, fake).Handler()

	t.Run("by folder", func(t *testing.T) {
		code, body := doJSON(t, h, http.MethodGet, "/api/files?folder_id=f1", "")
		if code != http.StatusOK {
			t.Fatalf("got status %d, want %d", code, http.StatusOK)
		}
		if got := body["count"]; got != float64(2) {
			t.Fatalf("count: got %v, want 2 (CSV files only)", got)
		}
	})

	t.Run("by search pattern", func(t *testing.T) {
		code, body := doJSON(t, h, http.MethodGet, "/api/files?search_pattern=run1", "")
		if code != http.StatusOK {
			t.Fatalf("got status %d, want %d", code, http.StatusOK)
		}
		// Name search matches the PDF too; only the CSV should come back.
		if got := body["count"]; got != float64(1) {
			t.Fatalf("count: got %v, want 1", got)
		}
	})

	t.Run("repeated search serves the cached result unchanged", func(t *testing.T) {
		want := []string{"run1.csv", "run2.csv"}
		fake.found = []drive.File{
			{ID: "a", Name: "run1.csv"},
			{ID: "d", Name: "plan.pdf"},
			{ID: "c", Name: "run2.csv"},
		}
		for round := 1; round <= 2; round++ {
			code, body := doJSON(t, h, http.MethodGet, "/api/files?search_pattern=run", "")
			if code != http.StatusOK {
				t.Fatalf("round %d: got status %d, want %d", round, code, http.StatusOK)
			}
			raw, _ := body["files"].([]any)
			var names []string
			for _, item := range raw {
				f, _ := item.(map[string]any)
				names = append(names, f["name"].(string))
			}
			if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
				t.Fatalf("round %d: files %v, want %v", round, names, want)
			}
		}
	})
}

func TestServer_AllCSVFiles_CachedFlags(t *testing.T) {
	fake := &fakeDrive{
		index: []drive.File{
			{ID: "cached-1", Name: "run1.csv"},
			{ID: "uncached-1", Name: "run2.csv"},
		},
	}
	srv := testServer(t, fake)

	frame, err := dataset.ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse sample: %v", err)
	}
	if err := srv.store.Put("cached-1", "run1.csv", "Battery A/run1.csv", frame); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	code, body := doJSON(t, srv.Handler(), http.MethodGet, "/all-csv-files", "")
	if code != http.StatusOK {
		t.Fatalf("got status %d, want %d", code, http.StatusOK)
	}
	if got := body["cached_count"]; got != float64(1) {
		t.Fatalf("cached_count: got %v, want 1", got)
	}

	files, ok := body["files"].([]any)
	if !ok || len(files) != 2 {
		t.Fatalf("files: got %v, want 2 entries", body["files"])
	}
	first, _ := files[0].(map[string]any)
	second, _ := files[1].(map[string]any)
	if got := first["cached"]; got != true {
		t.Fatalf("cached-1 flag: got %v, want true", got)
	}
	if got := second["cached"]; got != false {
		t.Fatalf("uncached-1 flag: got %v, want false", got)
	}
}

func TestServer_DriveErrors(t *testing.T) {
	t.Run("upstream failure maps to 502", func(t *testing.T) {
		fake := &fakeDrive{err: &googleapi.Error{Code: http.StatusInternalServerError, Message: "backend error"}}
		h := testServer(t, fake).Handler()
		code, body := doJSON(t, h, http.MethodGet, "/api/folders", "")
		if code != http.StatusBadGateway {
			t.Fatalf("got status %d, want %d", code, http.StatusBadGateway)
		}
		if body["error"] == "" {
			t.Fatalf("error message missing: %v", body)
		}
	})

	t.Run("missing file maps to 404", func(t *testing.T) {
		h := testServer(t, &fakeDrive{}).Handler()
		code, _ := doJSON(t, h, http.MethodGet, "/api/data/no-such-file", "")
		if code != http.StatusNotFound {
			t.Fatalf("got status %d, want %d", code, http.StatusNotFound)
		}
	})
}

func TestServer_Degraded(t *testing.T) {
	srv, st := degradedServer(t)
	h := srv.Handler()

	t.Run("listings unavailable", func(t *testing.T) {
		for _, path := range []string{"/api/folders", "/api/files", "/all-csv-files", "/subfolders/f1", "/files/f1"} {
			code, body := doJSON(t, h, http.MethodGet, path, "")
			if code != http.StatusServiceUnavailable {
				t.Fatalf("GET %s: got status %d, want %d", path, code, http.StatusServiceUnavailable)
			}
			if got, _ := body["error"].(string); !strings.Contains(got, "Drive service not available") {
				t.Fatalf("GET %s error: got %q", path, got)
			}
		}
	})

	t.Run("cached data still served", func(t *testing.T) {
		frame, err := dataset.ParseCSV(strings.NewReader(sampleCSV))
		if err != nil {
			t.Fatalf("parse sample: %v", err)
		}
		if err := st.Put("cached-1", "run1.csv", "Battery A/run1.csv", frame); err != nil {
			t.Fatalf("seed cache: %v", err)
		}

		code, body := doJSON(t, h, http.MethodGet, "/api/data/cached-1", "")
		if code != http.StatusOK {
			t.Fatalf("cached file: got status %d, want %d", code, http.StatusOK)
		}
		if got := body["success"]; got != true {
			t.Fatalf("success: got %v, want true", got)
		}

		code, _ = doJSON(t, h, http.MethodGet, "/api/data/uncached-1", "")
		if code != http.StatusServiceUnavailable {
			t.Fatalf("uncached file: got status %d, want %d", code, http.StatusServiceUnavailable)
		}
	})

	t.Run("cache endpoints still work", func(t *testing.T) {
		code, body := doJSON(t, h, http.MethodGet, "/api/cache/stats", "")
		if code != http.StatusOK {
			t.Fatalf("got status %d, want %d", code, http.StatusOK)
		}
		if got := body["success"]; got != true {
			t.Fatalf("success: got %v, want true", got)
		}
	})
}

func TestServer_CORS(t *testing.T) {
	h := testServer(t, &fakeDrive{}).Handler()

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/folders", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("got status %d, want %d", rec.Code, http.StatusNoContent)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("allow-origin: got %q, want *", got)
		}
	})

	t.Run("headers on normal responses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("allow-origin: got %q, want *", got)
		}
	})
}

func TestServer_PanicRecovery(t *testing.T) {
	srv := testServer(t, &fakeDrive{})
	// A nil store makes /health panic inside the handler.
	srv.store = nil
	code, body := doJSON(t, srv.Handler(), http.MethodGet, "/health", "")
	if code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", code, http.StatusInternalServerError)
	}
	if got := body["error"]; got != "internal server error" {
		t.Fatalf("error: got %v, want internal server error", got)
	}
}
