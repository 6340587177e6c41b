package checks

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Check)
	mu       sync.RWMutex
)

func Register(c Check) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[c.ID()]; exists {
		panic(fmt.Sprintf("check %s already registered", c.ID()))
	}
	registry[c.ID()] = c
}

func List() []Check {
	mu.RLock()
	defer mu.RUnlock()
	var all []Check
	for _, c := range registry {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID() < all[j].ID()
	})
	return all
}

// Resolve maps a comma-separated ID list to checks. An empty selector means
// every registered check.
func Resolve(selector string) ([]Check, error) {
	if selector == "" {
		return List(), nil
	}

	mu.RLock()
	defer mu.RUnlock()

	ids := strings.Split(selector, ",")
	var selected []Check
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if c, ok := registry[id]; ok {
			selected = append(selected, c)
		} else {
			return nil, fmt.Errorf("check not found: %s", id)
		}
	}
	return selected, nil
}
