// Package providers registers the Drive data providers. Import for side
// effects; each provider announces itself in init.
package providers

import (
	"context"
	"fmt"

	"battdash/internal/drive"
	"battdash/internal/fetcher"
)

func init() {
	fetcher.RegisterProvider(&fileMetaProvider{})
}

type fileMetaProvider struct{}

func (p *fileMetaProvider) Key() fetcher.Key   { return fetcher.KeyFileMeta }
func (p *fileMetaProvider) Tier() fetcher.Tier { return fetcher.TierListing }

func (p *fileMetaProvider) Fetch(ctx context.Context, params map[string]string, f *fetcher.Fetcher) (any, error) {
	fileID := params[fetcher.ParamFileID]
	if fileID == "" {
		return nil, fmt.Errorf("fetch file metadata: file_id param is required")
	}

	if err := f.Pacer().Acquire(ctx); err != nil {
		return nil, err
	}
	file, err := f.Drive().FileMeta(ctx, fileID)
	f.Pacer().Observe(err, drive.IsRateLimited(err))
	if err != nil {
		return nil, fmt.Errorf("fetch file metadata for %s: %w", fileID, err)
	}
	return file, nil
}
