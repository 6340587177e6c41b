package providers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"battdash/internal/dataset"
	"battdash/internal/drive"
	"battdash/internal/fetcher"
	"battdash/internal/store"
)

// fakeDrive is a canned Drive backend shared by the provider tests.
type fakeDrive struct {
	mu         sync.Mutex
	downloads   []string
	metaCalls   int
	listCalls   int
	indexCalls  int
	searchCalls int

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
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listCalls++
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
	d.mu.Lock()
	defer d.mu.Unlock()
	d.indexCalls++
	if d.err != nil {
		return nil, d.err
	}
	return d.index, nil
}

func (d *fakeDrive) BatteryTestFolders(_ context.Context, _ string, maxDepth int) ([]drive.Folder, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []drive.Folder
	for _, f := range d.battery {
		if f.Depth <= maxDepth {
			out = append(out, f)
		}
	}
	return out, nil
}

func (d *fakeDrive) Search(_ context.Context, _, _ string) ([]drive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.searchCalls++
	if d.err != nil {
		return nil, d.err
	}
	return d.found, nil
}

func (d *fakeDrive) FileMeta(_ context.Context, fileID string) (drive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.metaCalls++
	if d.err != nil {
		return drive.File{}, d.err
	}
	return d.meta[fileID], nil
}

func (d *fakeDrive) Download(_ context.Context, fileID string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.downloads = append(d.downloads, fileID)
	if d.err != nil {
		return nil, d.err
	}
	return d.content[fileID], nil
}

func newProviderFetcher(t *testing.T, api *fakeDrive) *fetcher.Fetcher {
	t.Helper()
	st, err := store.Open(t.TempDir(), time.Hour, 5, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return fetcher.NewFetcher(api, st, fetcher.NewPacer(0), zap.NewNop())
}

const sampleCSV = "Date_Time,Battery_Current_avg,Pack_SOC\n0,1.5,80\n10,1.4,81\n20,1.3,82\n"

func TestFileFrame_DownloadsParsesAndCaches(t *testing.T) {
	api := &fakeDrive{content: map[string][]byte{"id-1": []byte(sampleCSV)}}
	f := newProviderFetcher(t, api)

	v, err := f.Fetch(context.Background(), fetcher.KeyFileFrame, map[string]string{
		fetcher.ParamFileID:   "id-1",
		fetcher.ParamFileName: "run1.csv",
		fetcher.ParamPath:     "Battery A/run1.csv",
	})
	if err != nil {
		t.Fatalf("fetch frame: %v", err)
	}

	frame, ok := v.(*dataset.Frame)
	if !ok {
		t.Fatalf("result type: got %T, want *dataset.Frame", v)
	}
	if got := frame.NumRows(); got != 3 {
		t.Fatalf("rows: got %d, want 3", got)
	}
	// The cache holds the parsed frame; column names are untouched so
	// per-request preprocessing still sees the original header.
	if !frame.Has("Date_Time") {
		t.Fatalf("columns %v: missing Date_Time", frame.Columns())
	}

	if !f.Store().Valid("id-1") {
		t.Fatal("frame should be in the store after a fetch")
	}
	meta, ok := f.Store().Metadata("id-1")
	if !ok {
		t.Fatal("metadata missing after fetch")
	}
	if meta.FileName != "run1.csv" {
		t.Fatalf("cached name: got %q, want run1.csv", meta.FileName)
	}
	if meta.Path != "Battery A/run1.csv" {
		t.Fatalf("cached path: got %q, want Battery A/run1.csv", meta.Path)
	}
}

func TestFileFrame_SecondFetchSkipsDownload(t *testing.T) {
	api := &fakeDrive{content: map[string][]byte{"id-1": []byte(sampleCSV)}}
	f := newProviderFetcher(t, api)
	params := map[string]string{
		fetcher.ParamFileID:   "id-1",
		fetcher.ParamFileName: "run1.csv",
	}

	if _, err := f.Fetch(context.Background(), fetcher.KeyFileFrame, params); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := f.Fetch(context.Background(), fetcher.KeyFileFrame, params); err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if got := len(api.downloads); got != 1 {
		t.Fatalf("downloads: got %d, want 1", got)
	}
}

func TestFileFrame_ResolvesNameFromMetadata(t *testing.T) {
	api := &fakeDrive{
		content: map[string][]byte{"id-2": []byte(sampleCSV)},
		meta: map[string]drive.File{
			"id-2": {ID: "id-2", Name: "resolved.csv", Path: "Battery B/resolved.csv"},
		},
	}
	f := newProviderFetcher(t, api)

	_, err := f.Fetch(context.Background(), fetcher.KeyFileFrame, map[string]string{
		fetcher.ParamFileID: "id-2",
	})
	if err != nil {
		t.Fatalf("fetch frame: %v", err)
	}

	meta, ok := f.Store().Metadata("id-2")
	if !ok {
		t.Fatal("metadata missing after fetch")
	}
	if meta.FileName != "resolved.csv" {
		t.Fatalf("resolved name: got %q, want resolved.csv", meta.FileName)
	}
	if meta.Path != "Battery B/resolved.csv" {
		t.Fatalf("resolved path: got %q, want Battery B/resolved.csv", meta.Path)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.metaCalls != 1 {
		t.Fatalf("metadata calls: got %d, want 1", api.metaCalls)
	}
}

func TestFileFrame_RequiresFileID(t *testing.T) {
	f := newProviderFetcher(t, &fakeDrive{})

	_, err := f.Fetch(context.Background(), fetcher.KeyFileFrame, nil)
	if err == nil || !strings.Contains(err.Error(), "file_id param is required") {
		t.Fatalf("missing file_id: got %v, want required-param error", err)
	}
}

func TestFileFrame_ParseFailureSurfaces(t *testing.T) {
	api := &fakeDrive{content: map[string][]byte{"id-3": []byte("")}}
	f := newProviderFetcher(t, api)

	_, err := f.Fetch(context.Background(), fetcher.KeyFileFrame, map[string]string{
		fetcher.ParamFileID:   "id-3",
		fetcher.ParamFileName: "empty.csv",
	})
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("empty CSV: got %v, want parse error", err)
	}
	if f.Store().Valid("id-3") {
		t.Fatal("failed parses must not be cached")
	}
}
