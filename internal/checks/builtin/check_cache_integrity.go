package builtin

import (
	"context"
	"fmt"
	"os"

	"battdash/internal/checks"
	"battdash/internal/store"
)

type cacheIntegrityCheck struct{}

func (c *cacheIntegrityCheck) ID() string {
	return "cache.integrity"
}

func (c *cacheIntegrityCheck) Title() string {
	return "Cache Integrity"
}

func (c *cacheIntegrityCheck) Description() string {
	return "Verifies that the cache index matches the data files on disk."
}

func (c *cacheIntegrityCheck) Required() bool {
	return false
}

func (c *cacheIntegrityCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if env.Config == nil {
		return checks.Skip(c, "no configuration"), nil
	}
	cfg := env.Config

	// Opening the store would create the directory tree; don't do that on
	// a machine that has never cached anything.
	if _, err := os.Stat(cfg.Cache.Dir); os.IsNotExist(err) {
		return checks.Skip(c, "no cache directory yet"), nil
	}

	s, err := store.Open(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.MemoryEntries, env.Logger)
	if err != nil {
		return checks.Fail(c, fmt.Sprintf("open cache: %v", err)), nil
	}

	if problems := s.Verify(); len(problems) > 0 {
		return checks.FailWithDetail(c,
			fmt.Sprintf("%d cache entries are broken", len(problems)), problems...), nil
	}

	stats := s.Stats()
	msg := fmt.Sprintf("%d cached files", stats.TotalFiles)
	if expired := stats.TotalFiles - stats.ValidFiles; expired > 0 {
		return checks.PassWithDetail(c, msg,
			fmt.Sprintf("%d expired (run `battdash cache clear-expired`)", expired)), nil
	}
	return checks.Pass(c, msg), nil
}

func init() {
	checks.Register(&cacheIntegrityCheck{})
}
