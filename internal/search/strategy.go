// Package search matches two inventories into trade candidates. Each search
// mode is a Strategy; the Engine picks one by name or walks a preference list.
package search

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Input is what one search sees. Mine is the offer side, Theirs the ask side.
type Input struct {
	Mine     []domain.InventoryItem
	Theirs   []domain.InventoryItem
	Snapshot domain.ValueSnapshot
}

// Strategy is one search mode. Find returns at most one candidate and never
// modifies its input.
type Strategy interface {
	Mode() domain.SearchMode
	Find(in Input) []domain.TradeCandidate
}

// Params bounds the search space and carries the mode thresholds.
type Params struct {
	MaxOfferItems   int
	MaxRequestItems int
	// PoolSize caps each side to its most valuable items before combining.
	PoolSize int
	// ValuedPoolSize is the cap used by the upgrade-to-valued mode.
	ValuedPoolSize int
	// MinItemValue is the per-item floor applied by the downgrade mode.
	MinItemValue int64
	// ValuedPremiumMin and ValuedPremiumMax bound (ask-offer)/offer for the
	// upgrade-to-valued mode, as fractions.
	ValuedPremiumMin float64
	ValuedPremiumMax float64
	// KeepAssets are asset ids never offered.
	KeepAssets []int64
}

// DefaultParams mirrors the stock config.
func DefaultParams() Params {
	return Params{
		MaxOfferItems:    4,
		MaxRequestItems:  4,
		PoolSize:         10,
		ValuedPoolSize:   12,
		MinItemValue:     1000,
		ValuedPremiumMin: 0.0,
		ValuedPremiumMax: 0.3,
	}
}

// Registry holds the strategies selectable by mode name.
type Registry struct {
	strategies map[domain.SearchMode]Strategy
	mu         sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[domain.SearchMode]Strategy)}
}

// Register adds s under its own mode, replacing any previous entry.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Mode()] = s
}

// Get returns the strategy for mode, or an error wrapping domain.ErrUnknownMode.
func (r *Registry) Get(mode domain.SearchMode) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[mode]
	if !ok {
		return nil, fmt.Errorf("search: mode %q: %w", mode, domain.ErrUnknownMode)
	}
	return s, nil
}

// List returns all registered modes, sorted.
func (r *Registry) List() []domain.SearchMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modes := make([]domain.SearchMode, 0, len(r.strategies))
	for m := range r.strategies {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}
