package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	summaryTimeout    = 5 * time.Second
	summaryRetries    = 2
	summaryRetryDelay = 200 * time.Millisecond
)

// summaryClient aggregates backend state for the page's status line.
type summaryClient struct {
	rc     *resty.Client
	logger *zap.Logger
}

func newSummaryClient(baseURL string, logger *zap.Logger) *summaryClient {
	return &summaryClient{
		rc: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(summaryTimeout).
			SetRetryCount(summaryRetries).
			SetRetryWaitTime(summaryRetryDelay),
		logger: logger,
	}
}

type backendHealth struct {
	Status  string          `json:"status"`
	Version string          `json:"version"`
	Uptime  string          `json:"uptime"`
	Drive   string          `json:"drive"`
	Cache   json.RawMessage `json:"cache"`
}

type folderCount struct {
	Count int `json:"count"`
}

// Summary reports the backend's health and folder count. An unreachable
// backend degrades to {"backend": "unreachable"} rather than erroring, so
// the page always has a status line to draw.
func (c *summaryClient) Summary(ctx context.Context) map[string]any {
	out := map[string]any{"backend": "unreachable"}

	var health backendHealth
	resp, err := c.rc.R().SetContext(ctx).SetResult(&health).Get("/health")
	if err != nil || resp.StatusCode() != http.StatusOK {
		c.logger.Warn("backend health probe failed",
			zap.String("base_url", c.rc.BaseURL), zap.Error(err))
		return out
	}
	out["backend"] = health.Status
	out["backend_version"] = health.Version
	out["backend_uptime"] = health.Uptime
	out["drive"] = health.Drive
	if len(health.Cache) > 0 {
		out["cache"] = health.Cache
	}

	var folders folderCount
	resp, err = c.rc.R().SetContext(ctx).SetResult(&folders).Get("/api/folders")
	if err == nil && resp.StatusCode() == http.StatusOK {
		out["folder_count"] = folders.Count
	}
	return out
}
