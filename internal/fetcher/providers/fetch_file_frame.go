package providers

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"battdash/internal/dataset"
	"battdash/internal/drive"
	"battdash/internal/fetcher"
)

func init() {
	fetcher.RegisterProvider(&fileFrameProvider{})
}

// fileFrameProvider downloads a CSV, parses it, and persists the frame to
// the store under the file's cache key. The store write happens here rather
// than in the fetcher because only the provider knows the file's display
// name and folder path. Preprocessing stays with the caller; the cache holds
// the parsed frame so per-request options remain honest.
type fileFrameProvider struct{}

func (p *fileFrameProvider) Key() fetcher.Key   { return fetcher.KeyFileFrame }
func (p *fileFrameProvider) Tier() fetcher.Tier { return fetcher.TierFrame }

func (p *fileFrameProvider) Fetch(ctx context.Context, params map[string]string, f *fetcher.Fetcher) (any, error) {
	fileID := params[fetcher.ParamFileID]
	if fileID == "" {
		return nil, fmt.Errorf("fetch file frame: file_id param is required")
	}

	name := params[fetcher.ParamFileName]
	path := params[fetcher.ParamPath]
	if name == "" {
		meta, err := f.Fetch(ctx, fetcher.KeyFileMeta, map[string]string{
			fetcher.ParamFileID: fileID,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch file frame: resolve name for %s: %w", fileID, err)
		}
		file, ok := meta.(drive.File)
		if !ok {
			return nil, fmt.Errorf("fetch file frame: unexpected metadata type %T", meta)
		}
		name = file.Name
		if path == "" {
			path = file.Path
		}
	}
	if path == "" {
		path = name
	}

	if err := f.Pacer().Acquire(ctx); err != nil {
		return nil, err
	}
	raw, err := f.Drive().Download(ctx, fileID)
	f.Pacer().Observe(err, drive.IsRateLimited(err))
	if err != nil {
		return nil, fmt.Errorf("fetch file frame: download %s: %w", name, err)
	}

	frame, err := dataset.ParseCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("fetch file frame: parse %s: %w", name, err)
	}

	if err := f.Store().Put(fileID, name, path, frame); err != nil {
		// Serve the frame anyway; only the cache write was lost.
		f.Logger().Warn("cache write failed", zap.String("file", name), zap.Error(err))
	}
	return frame, nil
}
