package search

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
	"github.com/alanyoungcy/limitedbot/internal/tier"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// Engine runs strategies against two inventories and a value snapshot.
type Engine struct {
	registry *Registry
	now      func() time.Time
	logger   *slog.Logger
}

// NewEngine builds an Engine with all four modes registered.
func NewEngine(params Params, resolver valuation.Resolver, policy *tier.Policy, logger *slog.Logger) *Engine {
	b := base{params: params, resolver: resolver, policy: policy}
	reg := NewRegistry()
	reg.Register(OneForOne{b})
	reg.Register(Upgrade{b})
	reg.Register(Downgrade{b})
	reg.Register(UpgradeToValued{b})
	return &Engine{
		registry: reg,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "search")),
	}
}

// Registry exposes the mode registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Run executes one mode and returns zero or one candidate. The only error is
// an unknown mode.
func (e *Engine) Run(mode domain.SearchMode, mine, theirs []domain.InventoryItem, snap domain.ValueSnapshot) ([]domain.TradeCandidate, error) {
	s, err := e.registry.Get(mode)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	found := s.Find(Input{Mine: mine, Theirs: theirs, Snapshot: snap})
	elapsed := time.Since(start)
	metrics.SearchDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())

	if len(found) == 0 {
		metrics.SearchesTotal.WithLabelValues(string(mode), "miss").Inc()
		e.logger.Debug("no trade",
			slog.String("mode", string(mode)),
			slog.Int("mine", len(mine)),
			slog.Int("theirs", len(theirs)),
			slog.Duration("took", elapsed),
		)
		return nil, nil
	}

	metrics.SearchesTotal.WithLabelValues(string(mode), "hit").Inc()
	now := e.now()
	for i := range found {
		found[i].FoundAt = now
	}
	c := found[0]
	e.logger.Debug("trade found",
		slog.String("mode", string(mode)),
		slog.Int64("offer_total", c.OfferTotal),
		slog.Int64("ask_total", c.AskTotal),
		slog.Int64("gain", c.Gain),
		slog.Duration("took", elapsed),
	)
	return found, nil
}

// Best tries modes in order and returns the first non-empty result.
func (e *Engine) Best(modes []domain.SearchMode, mine, theirs []domain.InventoryItem, snap domain.ValueSnapshot) ([]domain.TradeCandidate, error) {
	for _, mode := range modes {
		found, err := e.Run(mode, mine, theirs, snap)
		if err != nil {
			return nil, fmt.Errorf("search: best: %w", err)
		}
		if len(found) > 0 {
			return found, nil
		}
	}
	return nil, nil
}
