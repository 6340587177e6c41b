package providers

import (
	"context"
	"fmt"

	"battdash/internal/drive"
	"battdash/internal/fetcher"
)

func init() {
	fetcher.RegisterProvider(&folderSubfoldersProvider{})
}

type folderSubfoldersProvider struct{}

func (p *folderSubfoldersProvider) Key() fetcher.Key   { return fetcher.KeyFolderSubfolders }
func (p *folderSubfoldersProvider) Tier() fetcher.Tier { return fetcher.TierListing }

func (p *folderSubfoldersProvider) Fetch(ctx context.Context, params map[string]string, f *fetcher.Fetcher) (any, error) {
	folderID := params[fetcher.ParamFolderID]
	if folderID == "" {
		return nil, fmt.Errorf("fetch subfolders: folder_id param is required")
	}

	if err := f.Pacer().Acquire(ctx); err != nil {
		return nil, err
	}
	folders, err := f.Drive().Subfolders(ctx, folderID)
	f.Pacer().Observe(err, drive.IsRateLimited(err))
	if err != nil {
		return nil, fmt.Errorf("fetch subfolders for %s: %w", folderID, err)
	}
	return folders, nil
}
