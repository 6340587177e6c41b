// Package fetcher is the single path between battdash and Drive. Every read
// goes cache, then single-flight, then a paced provider, so concurrent
// dashboard requests never issue duplicate Drive calls and rate limits slow
// the whole process down together.
package fetcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"battdash/internal/drive"
	"battdash/internal/store"
)

// Folder listings stay fresh for a short window only; Drive contents change
// while the dashboard is open. Frames live in the durable store instead.
const (
	listingTTL       = 30 * time.Second
	listingCacheSize = 128
)

// preloadWorkers bounds parallel warm-up downloads so interactive requests
// are not starved during startup.
const preloadWorkers = 2

// DriveAPI is the slice of the Drive client that providers use.
type DriveAPI interface {
	ListFolder(ctx context.Context, folderID string) ([]drive.File, error)
	Subfolders(ctx context.Context, folderID string) ([]drive.Folder, error)
	CSVFiles(ctx context.Context, folderID string) ([]drive.File, error)
	AllCSVFiles(ctx context.Context, rootID string) ([]drive.File, error)
	BatteryTestFolders(ctx context.Context, rootID string, maxDepth int) ([]drive.Folder, error)
	Search(ctx context.Context, name, folderID string) ([]drive.File, error)
	FileMeta(ctx context.Context, fileID string) (drive.File, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

type Fetcher struct {
	drive    DriveAPI
	store    *store.Store
	pacer    *Pacer
	group    singleflight.Group
	listings *expirable.LRU[string, any]
	logger   *zap.Logger
}

type fetchChainKey struct{}

func NewFetcher(api DriveAPI, st *store.Store, pacer *Pacer, logger *zap.Logger) *Fetcher {
	if pacer == nil {
		pacer = NewPacer(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		drive:    api,
		store:    st,
		pacer:    pacer,
		listings: expirable.NewLRU[string, any](listingCacheSize, nil, listingTTL),
		logger:   logger,
	}
}

func (f *Fetcher) Drive() DriveAPI     { return f.drive }
func (f *Fetcher) Store() *store.Store { return f.store }
func (f *Fetcher) Pacer() *Pacer       { return f.pacer }
func (f *Fetcher) Logger() *zap.Logger { return f.logger }

func (f *Fetcher) Fetch(ctx context.Context, key Key, params map[string]string) (any, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Fetch: nil context")
	}
	if f == nil {
		return nil, fmt.Errorf("Fetch: nil Fetcher")
	}
	if f.drive == nil {
		return nil, fmt.Errorf("Fetch: nil Drive client (use NewFetcher)")
	}
	if f.store == nil {
		return nil, fmt.Errorf("Fetch: nil store (use NewFetcher)")
	}
	if key == "" {
		return nil, fmt.Errorf("Fetch: empty key")
	}

	p, ok := ResolveProvider(key)
	if !ok {
		return nil, fmt.Errorf("unsupported fetch key: %s", key)
	}

	flightKey := makeFlightKey(key, params)

	ctx, err := withFetchChain(ctx, flightKey)
	if err != nil {
		return nil, err
	}

	if v, ok := f.lookup(p, params, flightKey); ok {
		return v, nil
	}

	// Single-flight (dedupe concurrent identical requests)
	v, err, _ := f.group.Do(flightKey, func() (interface{}, error) {
		v, err := p.Fetch(ctx, params, f)
		if err != nil {
			return nil, err
		}
		f.remember(p, flightKey, v)
		return v, nil
	})
	return v, err
}

// lookup consults the tier-appropriate cache. Frame providers persist to the
// store themselves, so on the way in only the lookup differs by tier.
func (f *Fetcher) lookup(p Provider, params map[string]string, flightKey string) (any, bool) {
	if p.Tier() == TierFrame {
		if fr, ok := f.store.Get(params[ParamFileID]); ok {
			return fr, true
		}
		return nil, false
	}
	return f.listings.Get(flightKey)
}

func (f *Fetcher) remember(p Provider, flightKey string, v any) {
	if p.Tier() == TierListing {
		f.listings.Add(flightKey, v)
	}
}

// Preload warms the store with the newest uncached CSVs so the first
// dashboard paint does not wait on Drive. Failures are logged and skipped;
// preloading is best effort.
func (f *Fetcher) Preload(ctx context.Context, files []drive.File, max int, delay time.Duration) int {
	if max <= 0 || len(files) == 0 {
		return 0
	}

	candidates := make([]drive.File, 0, len(files))
	for _, file := range files {
		if file.ID == "" || f.store.Valid(file.ID) {
			continue
		}
		candidates = append(candidates, file)
	}
	// Newest first; RFC 3339 strings order chronologically. Recent tests are
	// what the dashboard opens with.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Modified > candidates[j].Modified
	})
	if len(candidates) > max {
		candidates = candidates[:max]
	}

	var loaded atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadWorkers)
	for i, file := range candidates {
		if i > 0 && delay > 0 {
			select {
			case <-gctx.Done():
			case <-time.After(delay):
			}
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			params := map[string]string{
				ParamFileID:   file.ID,
				ParamFileName: file.Name,
				ParamPath:     file.Path,
			}
			if _, err := f.Fetch(gctx, KeyFileFrame, params); err != nil {
				f.logger.Warn("preload failed", zap.String("file", file.Name), zap.Error(err))
				return nil
			}
			loaded.Add(1)
			f.logger.Debug("preloaded", zap.String("file", file.Name))
			return nil
		})
	}
	g.Wait()

	n := int(loaded.Load())
	f.logger.Info("preload complete", zap.Int("loaded", n), zap.Int("candidates", len(candidates)))
	return n
}

func withFetchChain(ctx context.Context, flightKey string) (context.Context, error) {
	chain := getFetchChain(ctx)
	for _, existing := range chain {
		if existing == flightKey {
			return nil, fmt.Errorf("Fetch: dependency cycle detected: %s -> %s", strings.Join(chain, " -> "), flightKey)
		}
	}

	updated := make([]string, 0, len(chain)+1)
	updated = append(updated, chain...)
	updated = append(updated, flightKey)
	return context.WithValue(ctx, fetchChainKey{}, updated), nil
}

func getFetchChain(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	chain, ok := ctx.Value(fetchChainKey{}).([]string)
	if !ok {
		return nil
	}
	return chain
}

func makeFlightKey(key Key, params map[string]string) string {
	return string(key) + ":" + stableParamsKey(params)
}

func stableParamsKey(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "&")
}
