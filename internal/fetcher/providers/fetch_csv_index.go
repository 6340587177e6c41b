package providers

import (
	"context"
	"fmt"

	"battdash/internal/drive"
	"battdash/internal/fetcher"
)

func init() {
	fetcher.RegisterProvider(&csvIndexProvider{})
}

// csvIndexProvider walks the whole tree under the configured root. It is the
// most expensive listing, which is why the result rides the listing cache
// like any other.
type csvIndexProvider struct{}

func (p *csvIndexProvider) Key() fetcher.Key   { return fetcher.KeyCSVIndex }
func (p *csvIndexProvider) Tier() fetcher.Tier { return fetcher.TierListing }

func (p *csvIndexProvider) Fetch(ctx context.Context, params map[string]string, f *fetcher.Fetcher) (any, error) {
	folderID := params[fetcher.ParamFolderID]
	if folderID == "" {
		return nil, fmt.Errorf("fetch CSV index: folder_id param is required")
	}

	if err := f.Pacer().Acquire(ctx); err != nil {
		return nil, err
	}
	files, err := f.Drive().AllCSVFiles(ctx, folderID)
	f.Pacer().Observe(err, drive.IsRateLimited(err))
	if err != nil {
		return nil, fmt.Errorf("fetch CSV index for %s: %w", folderID, err)
	}
	return files, nil
}
