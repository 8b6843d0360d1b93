package search

import "github.com/alanyoungcy/limitedbot/internal/domain"

// Upgrade trades a set of my items for at least as many of theirs with a
// higher total.
type Upgrade struct{ base }

func (Upgrade) Mode() domain.SearchMode { return domain.ModeUpgrade }

func (s Upgrade) Find(in Input) []domain.TradeCandidate {
	mine := price(s.offerPool(in.Mine, in.Snapshot, s.params.PoolSize), in.Snapshot)
	theirs := price(s.askPool(in.Theirs, in.Snapshot, s.params.PoolSize), in.Snapshot)

	seen := offerSeen{}
	maxOffer := sizeRange(len(mine.items), s.params.MaxOfferItems)
	maxAsk := sizeRange(len(theirs.items), s.params.MaxRequestItems)

	for r := 1; r <= maxOffer; r++ {
		for offer := range combinations(len(mine.items), r) {
			ids := mine.ids(offer)
			if seen.has(ids) {
				continue
			}
			offerTotal := mine.total(offer)

			for n := r; n <= maxAsk; n++ {
				for ask := range combinations(len(theirs.items), n) {
					askTotal := theirs.total(ask)
					if askTotal <= offerTotal || !s.policy.Accepts(offerTotal, askTotal) {
						continue
					}
					seen.add(ids)
					return []domain.TradeCandidate{newCandidate(domain.ModeUpgrade, mine, offer, theirs, ask)}
				}
			}
		}
	}
	return nil
}
