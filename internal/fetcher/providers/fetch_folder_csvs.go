package providers

import (
	"context"
	"fmt"

	"battdash/internal/drive"
	"battdash/internal/fetcher"
)

func init() {
	fetcher.RegisterProvider(&folderCSVsProvider{})
}

type folderCSVsProvider struct{}

func (p *folderCSVsProvider) Key() fetcher.Key   { return fetcher.KeyFolderCSVs }
func (p *folderCSVsProvider) Tier() fetcher.Tier { return fetcher.TierListing }

func (p *folderCSVsProvider) Fetch(ctx context.Context, params map[string]string, f *fetcher.Fetcher) (any, error) {
	folderID := params[fetcher.ParamFolderID]
	if folderID == "" {
		return nil, fmt.Errorf("fetch folder CSVs: folder_id param is required")
	}

	if err := f.Pacer().Acquire(ctx); err != nil {
		return nil, err
	}
	files, err := f.Drive().CSVFiles(ctx, folderID)
	f.Pacer().Observe(err, drive.IsRateLimited(err))
	if err != nil {
		return nil, fmt.Errorf("fetch folder CSVs for %s: %w", folderID, err)
	}
	return files, nil
}
