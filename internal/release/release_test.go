package release

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// newTestClient points a release client at a fake GitHub API server.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(WithHTTPClient(srv.Client()))
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	client.Client.BaseURL = base
	return client
}

func releaseHandler(t *testing.T, tag, htmlURL string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/battlab/battdash/releases/latest" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"tag_name": tag,
			"html_url": htmlURL,
		})
	})
}

func TestLatest(t *testing.T) {
	client := newTestClient(t, releaseHandler(t, "v1.4.0", "https://example.com/battdash/v1.4.0"))

	tag, htmlURL, err := client.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if tag != "v1.4.0" {
		t.Errorf("tag: got %q, want %q", tag, "v1.4.0")
	}
	if htmlURL != "https://example.com/battdash/v1.4.0" {
		t.Errorf("url: got %q", htmlURL)
	}
}

func TestLatestError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))

	_, _, err := client.Latest(context.Background())
	if err == nil {
		t.Fatal("Latest: expected error, got nil")
	}
	if !strings.Contains(err.Error(), "battlab/battdash") {
		t.Errorf("error should name the repository, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		outdated bool
	}{
		{name: "older", current: "v1.2.0", outdated: true},
		{name: "same", current: "v1.4.0", outdated: false},
		{name: "newer", current: "v1.5.0", outdated: false},
		{name: "dev build", current: "dev", outdated: false},
		{name: "empty", current: "", outdated: false},
	}

	client := newTestClient(t, releaseHandler(t, "v1.4.0", "https://example.com/r"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := client.Check(context.Background(), tt.current)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if info.Latest != "v1.4.0" {
				t.Errorf("Latest: got %q, want %q", info.Latest, "v1.4.0")
			}
			if info.Outdated != tt.outdated {
				t.Errorf("Outdated: got %v, want %v", info.Outdated, tt.outdated)
			}
		})
	}
}

func TestCheckLookupFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))

	info, err := client.Check(context.Background(), "v1.0.0")
	if err == nil {
		t.Fatal("Check: expected error, got nil")
	}
	if info.Current != "v1.0.0" {
		t.Errorf("Current should survive the failure, got %q", info.Current)
	}
	if info.Latest != "" || info.Outdated {
		t.Errorf("failed lookup must not report an update: %+v", info)
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		latest  string
		current string
		want    bool
	}{
		{"v1.4.0", "v1.2.0", true},
		{"1.4.0", "v1.2.0", true},
		{"v1.4.0", "1.4.0", false},
		{"v1.2.0", "v1.4.0", false},
		{"v2.0.0", "v1.9.9", true},
		{"v1.10.0", "v1.9.0", true},
		{"v1.2.1", "v1.2", true},
		{"v1.2", "v1.2.0", false},
		{"v1.4.0-rc.1", "v1.3.0", true},
		{"v1.4.0", "dev", false},
		{"v1.4.0", "", false},
		{"", "v1.0.0", false},
		{"garbage", "v1.0.0", false},
		{"v1.4.0", "not-a-version", false},
	}

	for _, tt := range tests {
		t.Run(tt.latest+"_vs_"+tt.current, func(t *testing.T) {
			if got := IsNewer(tt.latest, tt.current); got != tt.want {
				t.Errorf("IsNewer(%q, %q): got %v, want %v", tt.latest, tt.current, got, tt.want)
			}
		})
	}
}
