package providers

import (
	"context"
	"fmt"

	"battdash/internal/drive"
	"battdash/internal/fetcher"
)

func init() {
	fetcher.RegisterProvider(&folderListingProvider{})
}

type folderListingProvider struct{}

func (p *folderListingProvider) Key() fetcher.Key   { return fetcher.KeyFolderListing }
func (p *folderListingProvider) Tier() fetcher.Tier { return fetcher.TierListing }

func (p *folderListingProvider) Fetch(ctx context.Context, params map[string]string, f *fetcher.Fetcher) (any, error) {
	folderID := params[fetcher.ParamFolderID]
	if folderID == "" {
		return nil, fmt.Errorf("fetch folder listing: folder_id param is required")
	}

	if err := f.Pacer().Acquire(ctx); err != nil {
		return nil, err
	}
	files, err := f.Drive().ListFolder(ctx, folderID)
	f.Pacer().Observe(err, drive.IsRateLimited(err))
	if err != nil {
		return nil, fmt.Errorf("fetch folder listing for %s: %w", folderID, err)
	}
	return files, nil
}
