package search

import (
	"sort"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/tier"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// base carries what every mode shares.
type base struct {
	params   Params
	resolver valuation.Resolver
	policy   *tier.Policy
}

// offerPool applies the keep list, ranks by value, caps to k and drops
// projected items if the offer side is strict.
func (b base) offerPool(items []domain.InventoryItem, snap domain.ValueSnapshot, k int) []domain.InventoryItem {
	items = valuation.ExcludeAssets(items, b.params.KeepAssets)
	items = valuation.Top(valuation.SortByValue(items, snap), k)
	return b.resolver.FilterOffer(items, snap)
}

// askPool ranks by value, caps to k and drops projected items if the ask side
// is strict.
func (b base) askPool(items []domain.InventoryItem, snap domain.ValueSnapshot, k int) []domain.InventoryItem {
	items = valuation.Top(valuation.SortByValue(items, snap), k)
	return b.resolver.FilterAsk(items, snap)
}

// offerSeen tracks offer sets already used by an accepted candidate within one
// Find call.
type offerSeen map[string]struct{}

func (s offerSeen) has(ids []int64) bool {
	_, ok := s[domain.IDSetKey(ids)]
	return ok
}

func (s offerSeen) add(ids []int64) {
	s[domain.IDSetKey(ids)] = struct{}{}
}

func newCandidate(mode domain.SearchMode, mine priced, offerIdx []int, theirs priced, askIdx []int) domain.TradeCandidate {
	offerTotal := mine.total(offerIdx)
	askTotal := theirs.total(askIdx)
	return domain.TradeCandidate{
		Mode:       mode,
		Offer:      pick(mine.items, offerIdx),
		Ask:        pick(theirs.items, askIdx),
		OfferTotal: offerTotal,
		AskTotal:   askTotal,
		Gain:       askTotal - offerTotal,
	}
}

// best keeps the highest-gain candidate.
func best(cands []domain.TradeCandidate) []domain.TradeCandidate {
	if len(cands) <= 1 {
		return cands
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Gain > cands[j].Gain })
	return cands[:1]
}
