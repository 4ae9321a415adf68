// Package adapters converts upstream feeds, APIs and pages into canonical items.
package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/datagate/datagate/internal/fetch"
	"github.com/datagate/datagate/internal/models"
)

// AdapterVersion is recorded in every item's original metadata.
const AdapterVersion = "raw-metadata-v1"

// Adapter defines the interface every source adapter implements.
type Adapter interface {
	// Key returns the registry key, e.g. "aws-big-data".
	Key() string

	// Source returns the source identity the adapter writes under.
	Source() models.SourceConfig

	// FetchAndParse retrieves the source and returns canonical items sorted
	// newest first with unique external ids and URLs. A malformed item is
	// skipped; only a total retrieval failure is returned as an error.
	FetchAndParse(ctx context.Context) ([]models.Item, error)
}

// Fetcher is the retrieval surface adapters depend on. *fetch.Client
// satisfies it.
type Fetcher interface {
	FetchText(ctx context.Context, url string, opts ...fetch.RequestOption) (string, error)
	FetchJSON(ctx context.Context, url string, v any, opts ...fetch.RequestOption) error
}

// DatePolicy decides what happens to an item whose date cannot be parsed.
type DatePolicy int

const (
	// DropOnBadDate skips the item.
	DropOnBadDate DatePolicy = iota
	// DefaultToNow stamps the item with the fetch time.
	DefaultToNow
)

func (p DatePolicy) String() string {
	switch p {
	case DropOnBadDate:
		return "drop"
	case DefaultToNow:
		return "now"
	default:
		return fmt.Sprintf("DatePolicy(%d)", int(p))
	}
}

// Registry maps adapter keys to adapters in registration order.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Keys must be unique.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := a.Key()
	if key == "" {
		return fmt.Errorf("adapter key is empty")
	}
	if _, exists := r.adapters[key]; exists {
		return fmt.Errorf("adapter %q already registered", key)
	}
	r.adapters[key] = a
	r.order = append(r.order, key)
	return nil
}

// MustRegister is Register for static wiring; it panics on a duplicate key.
func (r *Registry) MustRegister(adapters ...Adapter) {
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
}

// Get returns the adapter registered under key.
func (r *Registry) Get(key string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[key]
	return a, ok
}

// Keys lists registered keys in registration order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// SourceName resolves the persisted source name for key.
func (r *Registry) SourceName(key string) (string, bool) {
	a, ok := r.Get(key)
	if !ok {
		return "", false
	}
	return a.Source().Name, true
}

// Sources returns every registered source config sorted by name.
func (r *Registry) Sources() []models.SourceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.SourceConfig, 0, len(r.adapters))
	for _, key := range r.order {
		out = append(out, r.adapters[key].Source())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
