package search

import (
	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// UpgradeToValued offers rap-only items for valued ones at a bounded premium.
type UpgradeToValued struct{ base }

func (UpgradeToValued) Mode() domain.SearchMode { return domain.ModeUpgradeToValued }

func (s UpgradeToValued) Find(in Input) []domain.TradeCandidate {
	k := s.params.ValuedPoolSize
	snap := in.Snapshot

	myTop := valuation.Top(valuation.SortByValue(valuation.ExcludeAssets(in.Mine, s.params.KeepAssets), snap), k)
	mine := price(s.resolver.FilterOffer(valuation.Where(myTop, snap, valuation.IsRapOnly), snap), snap)

	theirTop := valuation.Top(valuation.SortByValue(in.Theirs, snap), k)
	theirs := price(s.resolver.FilterAsk(valuation.Where(theirTop, snap, valuation.IsValued), snap), snap)

	seen := offerSeen{}
	maxOffer := sizeRange(len(mine.items), s.params.MaxOfferItems)
	maxAsk := sizeRange(len(theirs.items), s.params.MaxRequestItems)

	for r := 1; r <= maxOffer; r++ {
		for offer := range combinations(len(mine.items), r) {
			ids := mine.ids(offer)
			offerTotal := mine.total(offer)
			if offerTotal <= 0 || seen.has(ids) {
				continue
			}
			for n := 1; n <= maxAsk; n++ {
				for ask := range combinations(len(theirs.items), n) {
					askTotal := theirs.total(ask)
					if askTotal <= offerTotal || !s.withinPremium(offerTotal, askTotal) {
						continue
					}
					seen.add(ids)
					return []domain.TradeCandidate{newCandidate(domain.ModeUpgradeToValued, mine, offer, theirs, ask)}
				}
			}
		}
	}
	return nil
}

func (s UpgradeToValued) withinPremium(offerTotal, askTotal int64) bool {
	premium := float64(askTotal-offerTotal) / float64(offerTotal)
	return s.params.ValuedPremiumMin <= premium && premium <= s.params.ValuedPremiumMax
}
