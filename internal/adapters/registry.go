package adapters

import (
	"sort"
	"sync"

	"github.com/custodia/walletcore/pkg/errors"
)

// Registry maps currency symbols to their adapters. It is populated at
// startup and read-mostly afterwards.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]CoinAdapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]CoinAdapter)}
}

// Register adds an adapter. The last registration for a symbol wins.
func (r *Registry) Register(adapter CoinAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Symbol()] = adapter
}

// Get resolves a symbol to its adapter.
func (r *Registry) Get(symbol string) (CoinAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[symbol]
	if !ok {
		return nil, errors.Newf(errors.KindInvalidRequest, "unknown symbol %q", symbol)
	}
	return adapter, nil
}

// All returns every registered adapter, ordered by symbol for stable
// iteration.
func (r *Registry) All() []CoinAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	symbols := make([]string, 0, len(r.adapters))
	for symbol := range r.adapters {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	out := make([]CoinAdapter, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, r.adapters[symbol])
	}
	return out
}

// Symbols returns the registered currency codes, sorted.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	symbols := make([]string, 0, len(r.adapters))
	for symbol := range r.adapters {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
