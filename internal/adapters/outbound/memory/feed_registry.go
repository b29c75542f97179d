// feed_registry.go provides an in-memory implementation of FeedRegistry.
//
// Descriptors are keyed by their normalised BASE/QUOTE pair. The registry is
// filled once at start-up, from the reference data directory and any static
// feeds in the config, and is read-only afterwards.
//
// All operations are thread-safe.
package memory

import (
	"sort"
	"sync"

	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/ports/outbound"
)

// Compile-time check that FeedRegistry implements outbound.FeedRegistry
var _ outbound.FeedRegistry = (*FeedRegistry)(nil)

// FeedRegistry is an in-memory pair-to-oracle table for one chain.
type FeedRegistry struct {
	mu    sync.RWMutex
	feeds map[string]*entity.OracleDescriptor
}

// NewFeedRegistry creates an empty registry.
func NewFeedRegistry() *FeedRegistry {
	return &FeedRegistry{
		feeds: make(map[string]*entity.OracleDescriptor),
	}
}

// Add stores o under its pair, replacing any previous entry.
func (r *FeedRegistry) Add(o *entity.OracleDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds[entity.PairKey(o.Base, o.Quote)] = o
}

// Lookup returns the oracle of base/quote. Symbols are case-insensitive.
func (r *FeedRegistry) Lookup(base, quote string) (*entity.OracleDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.feeds[entity.PairKey(base, quote)]
	return o, ok
}

// Len returns the number of registered pairs.
func (r *FeedRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.feeds)
}

// All returns every descriptor sorted by name.
func (r *FeedRegistry) All() []*entity.OracleDescriptor {
	r.mu.RLock()
	out := make([]*entity.OracleDescriptor, 0, len(r.feeds))
	for _, o := range r.feeds {
		out = append(out, o)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
