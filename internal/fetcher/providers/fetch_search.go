package providers

import (
	"context"
	"fmt"
	"strings"

	"battdash/internal/drive"
	"battdash/internal/fetcher"
)

func init() {
	fetcher.RegisterProvider(&searchProvider{})
}

type searchProvider struct{}

func (p *searchProvider) Key() fetcher.Key   { return fetcher.KeySearch }
func (p *searchProvider) Tier() fetcher.Tier { return fetcher.TierListing }

func (p *searchProvider) Fetch(ctx context.Context, params map[string]string, f *fetcher.Fetcher) (any, error) {
	query := params[fetcher.ParamQuery]
	if query == "" {
		return nil, fmt.Errorf("search files: query param is required")
	}
	folderID := params[fetcher.ParamFolderID]

	if err := f.Pacer().Acquire(ctx); err != nil {
		return nil, err
	}
	files, err := f.Drive().Search(ctx, query, folderID)
	f.Pacer().Observe(err, drive.IsRateLimited(err))
	if err != nil {
		return nil, fmt.Errorf("search files %q: %w", query, err)
	}

	// Drive name search matches any type; only CSVs go into the listing
	// cache. Copied into a fresh slice so the cached value owns its array.
	out := make([]drive.File, 0, len(files))
	for _, file := range files {
		if strings.HasSuffix(strings.ToLower(file.Name), ".csv") {
			out = append(out, file)
		}
	}
	return out, nil
}
