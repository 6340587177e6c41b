package fetcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provider fetches one Key's worth of data from Drive. Implementations live in
// the providers subpackage and register themselves at init time.
type Provider interface {
	Key() Key
	Tier() Tier
	Fetch(ctx context.Context, params map[string]string, f *Fetcher) (any, error)
}

var (
	providerRegistry = make(map[Key]Provider)
	providerMu       sync.RWMutex
)

func RegisterProvider(p Provider) {
	if p == nil {
		panic("provider is nil")
	}
	k := p.Key()
	if k == "" {
		panic("provider key is empty")
	}

	providerMu.Lock()
	defer providerMu.Unlock()
	if _, exists := providerRegistry[k]; exists {
		panic(fmt.Sprintf("provider %s already registered", k))
	}
	providerRegistry[k] = p
}

func ResolveProvider(key Key) (Provider, bool) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	p, ok := providerRegistry[key]
	return p, ok
}

func ListProviders() []Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()

	all := make([]Provider, 0, len(providerRegistry))
	for _, p := range providerRegistry {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Key() < all[j].Key()
	})
	return all
}
