package providers

import (
	"context"
	"fmt"
	"strconv"

	"battdash/internal/drive"
	"battdash/internal/fetcher"
)

// defaultMaxDepth bounds the battery-folder walk. Test archives nest as
// battery/test-run/csv, so three levels reaches everything real.
const defaultMaxDepth = 3

func init() {
	fetcher.RegisterProvider(&batteryFoldersProvider{})
}

type batteryFoldersProvider struct{}

func (p *batteryFoldersProvider) Key() fetcher.Key   { return fetcher.KeyBatteryFolders }
func (p *batteryFoldersProvider) Tier() fetcher.Tier { return fetcher.TierListing }

func (p *batteryFoldersProvider) Fetch(ctx context.Context, params map[string]string, f *fetcher.Fetcher) (any, error) {
	folderID := params[fetcher.ParamFolderID]
	if folderID == "" {
		return nil, fmt.Errorf("fetch battery folders: folder_id param is required")
	}

	maxDepth := defaultMaxDepth
	if raw := params[fetcher.ParamMaxDepth]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("fetch battery folders: invalid max_depth %q", raw)
		}
		maxDepth = parsed
	}

	if err := f.Pacer().Acquire(ctx); err != nil {
		return nil, err
	}
	folders, err := f.Drive().BatteryTestFolders(ctx, folderID, maxDepth)
	f.Pacer().Observe(err, drive.IsRateLimited(err))
	if err != nil {
		return nil, fmt.Errorf("fetch battery folders for %s: %w", folderID, err)
	}
	return folders, nil
}
