package search

import "github.com/alanyoungcy/limitedbot/internal/domain"

// OneForOne swaps a single item for a single more valuable item.
type OneForOne struct{ base }

func (OneForOne) Mode() domain.SearchMode { return domain.ModeOneForOne }

// Find walks my items from most valuable down and returns the first pair whose
// gain the offer's tier accepts.
func (s OneForOne) Find(in Input) []domain.TradeCandidate {
	mine := price(s.offerPool(in.Mine, in.Snapshot, s.params.PoolSize), in.Snapshot)
	theirs := price(s.askPool(in.Theirs, in.Snapshot, s.params.PoolSize), in.Snapshot)

	seen := offerSeen{}
	for i := range mine.items {
		offer := []int{i}
		if seen.has(mine.ids(offer)) {
			continue
		}
		for j := range theirs.items {
			if theirs.values[j] <= mine.values[i] {
				continue
			}
			if s.policy.Accepts(mine.values[i], theirs.values[j]) {
				seen.add(mine.ids(offer))
				return []domain.TradeCandidate{newCandidate(domain.ModeOneForOne, mine, offer, theirs, []int{j})}
			}
		}
	}
	return nil
}
