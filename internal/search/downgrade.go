package search

import (
	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// Downgrade splits or consolidates value. A single offered item may be traded
// for several cheaper ones; larger offers follow the size/value cross rule.
// Gains may be negative when the tier band allows it.
type Downgrade struct{ base }

func (Downgrade) Mode() domain.SearchMode { return domain.ModeDowngrade }

func (s Downgrade) Find(in Input) []domain.TradeCandidate {
	floor := s.params.MinItemValue
	mineAll := valuation.MinValue(in.Mine, in.Snapshot, floor)
	theirsAll := valuation.MinValue(in.Theirs, in.Snapshot, floor)
	if len(mineAll) == 0 || len(theirsAll) == 0 {
		return nil
	}

	mine := price(s.offerPool(mineAll, in.Snapshot, s.params.PoolSize), in.Snapshot)
	theirs := price(s.askPool(theirsAll, in.Snapshot, s.params.PoolSize), in.Snapshot)

	seen := offerSeen{}
	var found []domain.TradeCandidate
	maxOffer := sizeRange(len(mine.items), s.params.MaxOfferItems)
	maxAsk := sizeRange(len(theirs.items), s.params.MaxRequestItems)

	for r := 1; r <= maxOffer; r++ {
		for offer := range combinations(len(mine.items), r) {
			ids := mine.ids(offer)
			if seen.has(ids) {
				continue
			}
			offerTotal := mine.total(offer)

			if r == 1 {
				if c, ok := s.split(mine, offer, theirs, offerTotal, maxAsk); ok {
					return []domain.TradeCandidate{c}
				}
				continue
			}

			if c, ok := s.cross(mine, offer, theirs, offerTotal, maxAsk); ok {
				seen.add(ids)
				found = append(found, c)
			}
		}
	}
	return best(found)
}

// split looks for two or more of their items, each worth less than the single
// offered item.
func (s Downgrade) split(mine priced, offer []int, theirs priced, offerTotal int64, maxAsk int) (domain.TradeCandidate, bool) {
	for n := 2; n <= maxAsk; n++ {
	next:
		for ask := range combinations(len(theirs.items), n) {
			for _, j := range ask {
				if theirs.values[j] >= offerTotal {
					continue next
				}
			}
			if s.policy.Accepts(offerTotal, theirs.total(ask)) {
				return newCandidate(domain.ModeDowngrade, mine, offer, theirs, ask), true
			}
		}
	}
	return domain.TradeCandidate{}, false
}

// cross applies the size/value rule to a multi-item offer: fewer offered items
// than asked needs a higher ask total, more offered items needs a lower one,
// and equal sizes never match.
func (s Downgrade) cross(mine priced, offer []int, theirs priced, offerTotal int64, maxAsk int) (domain.TradeCandidate, bool) {
	r := len(offer)
	for n := 1; n <= maxAsk; n++ {
		if n == r {
			continue
		}
		for ask := range combinations(len(theirs.items), n) {
			askTotal := theirs.total(ask)
			if r < n && askTotal <= offerTotal {
				continue
			}
			if r > n && askTotal >= offerTotal {
				continue
			}
			if s.policy.Accepts(offerTotal, askTotal) {
				return newCandidate(domain.ModeDowngrade, mine, offer, theirs, ask), true
			}
		}
	}
	return domain.TradeCandidate{}, false
}
