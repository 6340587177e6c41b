package providers

import (
	"context"
	"strings"
	"testing"

	"google.golang.org/api/googleapi"

	"battdash/internal/drive"
	"battdash/internal/fetcher"
)

func TestFolderListing_ReturnsFilesAndCaches(t *testing.T) {
	api := &fakeDrive{files: map[string][]drive.File{
		"root": {{ID: "a", Name: "a.csv"}, {ID: "b", Name: "notes.txt"}},
	}}
	f := newProviderFetcher(t, api)
	params := map[string]string{fetcher.ParamFolderID: "root"}

	v, err := f.Fetch(context.Background(), fetcher.KeyFolderListing, params)
	if err != nil {
		t.Fatalf("fetch listing: %v", err)
	}
	files := v.([]drive.File)
	if len(files) != 2 {
		t.Fatalf("files: got %d, want 2", len(files))
	}

	if _, err := f.Fetch(context.Background(), fetcher.KeyFolderListing, params); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.listCalls != 1 {
		t.Fatalf("list calls: got %d, want 1", api.listCalls)
	}
}

func TestFolderListing_RequiresFolderID(t *testing.T) {
	f := newProviderFetcher(t, &fakeDrive{})

	_, err := f.Fetch(context.Background(), fetcher.KeyFolderListing, nil)
	if err == nil || !strings.Contains(err.Error(), "folder_id param is required") {
		t.Fatalf("missing folder_id: got %v, want required-param error", err)
	}
}

func TestFolderSubfolders(t *testing.T) {
	api := &fakeDrive{folders: map[string][]drive.Folder{
		"root": {{ID: "s1", Name: "Battery A"}, {ID: "s2", Name: "Battery B"}},
	}}
	f := newProviderFetcher(t, api)

	v, err := f.Fetch(context.Background(), fetcher.KeyFolderSubfolders, map[string]string{
		fetcher.ParamFolderID: "root",
	})
	if err != nil {
		t.Fatalf("fetch subfolders: %v", err)
	}
	folders := v.([]drive.Folder)
	if len(folders) != 2 || folders[0].Name != "Battery A" {
		t.Fatalf("subfolders: got %v", folders)
	}
}

func TestFolderCSVs_FiltersToCSV(t *testing.T) {
	api := &fakeDrive{files: map[string][]drive.File{
		"f1": {{ID: "a", Name: "a.csv"}, {ID: "b", Name: "readme.md"}},
	}}
	f := newProviderFetcher(t, api)

	v, err := f.Fetch(context.Background(), fetcher.KeyFolderCSVs, map[string]string{
		fetcher.ParamFolderID: "f1",
	})
	if err != nil {
		t.Fatalf("fetch folder CSVs: %v", err)
	}
	files := v.([]drive.File)
	if len(files) != 1 || files[0].Name != "a.csv" {
		t.Fatalf("folder CSVs: got %v, want only a.csv", files)
	}
}

func TestCSVIndex_WalksTreeAndCaches(t *testing.T) {
	api := &fakeDrive{index: []drive.File{
		{ID: "a", Name: "a.csv", FolderPath: "Battery A"},
		{ID: "b", Name: "b.csv", FolderPath: "Battery B"},
	}}
	f := newProviderFetcher(t, api)
	params := map[string]string{fetcher.ParamFolderID: "root"}

	v, err := f.Fetch(context.Background(), fetcher.KeyCSVIndex, params)
	if err != nil {
		t.Fatalf("fetch index: %v", err)
	}
	if got := len(v.([]drive.File)); got != 2 {
		t.Fatalf("index size: got %d, want 2", got)
	}

	if _, err := f.Fetch(context.Background(), fetcher.KeyCSVIndex, params); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.indexCalls != 1 {
		t.Fatalf("index walks: got %d, want 1", api.indexCalls)
	}
}

func TestBatteryFolders_DefaultDepth(t *testing.T) {
	api := &fakeDrive{battery: []drive.Folder{
		{ID: "r", Name: "Root", Depth: 0},
		{ID: "d3", Name: "Battery A", Depth: 3},
		{ID: "d4", Name: "Too Deep", Depth: 4},
	}}
	f := newProviderFetcher(t, api)

	v, err := f.Fetch(context.Background(), fetcher.KeyBatteryFolders, map[string]string{
		fetcher.ParamFolderID: "root",
	})
	if err != nil {
		t.Fatalf("fetch battery folders: %v", err)
	}
	folders := v.([]drive.Folder)
	if len(folders) != 2 {
		t.Fatalf("folders within default depth: got %v, want Root and Battery A", folders)
	}
}

func TestBatteryFolders_InvalidMaxDepth(t *testing.T) {
	f := newProviderFetcher(t, &fakeDrive{})

	_, err := f.Fetch(context.Background(), fetcher.KeyBatteryFolders, map[string]string{
		fetcher.ParamFolderID: "root",
		fetcher.ParamMaxDepth: "lots",
	})
	if err == nil || !strings.Contains(err.Error(), "invalid max_depth") {
		t.Fatalf("bad max_depth: got %v, want invalid max_depth error", err)
	}
}

func TestSearch_RequiresQuery(t *testing.T) {
	f := newProviderFetcher(t, &fakeDrive{})

	_, err := f.Fetch(context.Background(), fetcher.KeySearch, nil)
	if err == nil || !strings.Contains(err.Error(), "query param is required") {
		t.Fatalf("missing query: got %v, want required-param error", err)
	}
}

func TestSearch_FiltersToCSV(t *testing.T) {
	api := &fakeDrive{found: []drive.File{
		{ID: "m", Name: "match.csv"},
		{ID: "p", Name: "match_report.pdf"},
		{ID: "n", Name: "match2.CSV"},
	}}
	f := newProviderFetcher(t, api)

	v, err := f.Fetch(context.Background(), fetcher.KeySearch, map[string]string{
		fetcher.ParamQuery: "match",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	files := v.([]drive.File)
	if len(files) != 2 || files[0].Name != "match.csv" || files[1].Name != "match2.CSV" {
		t.Fatalf("search results: got %v, want the two CSVs", files)
	}
}

func TestSearch_CachedResultSurvivesRepeats(t *testing.T) {
	api := &fakeDrive{found: []drive.File{
		{ID: "a", Name: "a.csv"},
		{ID: "t", Name: "notes.txt"},
		{ID: "b", Name: "b.csv"},
	}}
	f := newProviderFetcher(t, api)
	params := map[string]string{fetcher.ParamQuery: "a"}

	first, err := f.Fetch(context.Background(), fetcher.KeySearch, params)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := f.Fetch(context.Background(), fetcher.KeySearch, params)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	for round, v := range map[string]any{"first": first, "second": second} {
		files := v.([]drive.File)
		if len(files) != 2 || files[0].Name != "a.csv" || files[1].Name != "b.csv" {
			t.Fatalf("%s search: got %v, want [a.csv b.csv]", round, files)
		}
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.searchCalls != 1 {
		t.Fatalf("search calls: got %d, want 1 (second fetch must hit the cache)", api.searchCalls)
	}
	// The filter must not compact the backend's slice in place.
	if api.found[1].Name != "notes.txt" {
		t.Fatalf("backend results mutated: %v", api.found)
	}
}

func TestRateLimitStartsCooldown(t *testing.T) {
	api := &fakeDrive{err: &googleapi.Error{Code: 429, Message: "rate limit exceeded"}}
	f := newProviderFetcher(t, api)

	_, err := f.Fetch(context.Background(), fetcher.KeyFolderListing, map[string]string{
		fetcher.ParamFolderID: "root",
	})
	if err == nil {
		t.Fatal("rate-limited listing should fail")
	}
	if _, active := f.Pacer().CooldownUntil(); !active {
		t.Fatal("a 429 must start a pacer cooldown")
	}
}

func TestPlainErrorLeavesPacerAlone(t *testing.T) {
	api := &fakeDrive{err: &googleapi.Error{Code: 500, Message: "backend"}}
	f := newProviderFetcher(t, api)

	_, err := f.Fetch(context.Background(), fetcher.KeyFolderListing, map[string]string{
		fetcher.ParamFolderID: "root",
	})
	if err == nil {
		t.Fatal("server error should fail")
	}
	if _, active := f.Pacer().CooldownUntil(); active {
		t.Fatal("a 500 must not start a cooldown")
	}
}
