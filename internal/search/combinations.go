package search

import (
	"iter"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// combinations yields every r-element index combination of [0, n) in
// lexicographic order. The yielded slice is reused between iterations.
func combinations(n, r int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		if r <= 0 || r > n {
			return
		}
		idx := make([]int, r)
		for i := range idx {
			idx[i] = i
		}
		for {
			if !yield(idx) {
				return
			}
			i := r - 1
			for i >= 0 && idx[i] == n-r+i {
				i--
			}
			if i < 0 {
				return
			}
			idx[i]++
			for j := i + 1; j < r; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
}

// pick copies the indexed items out of pool.
func pick(pool []domain.InventoryItem, idx []int) []domain.InventoryItem {
	out := make([]domain.InventoryItem, len(idx))
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}

// sizeRange is the inclusive upper bound for set sizes drawn from a pool.
func sizeRange(poolLen, limit int) int {
	if limit <= 0 || poolLen < limit {
		return poolLen
	}
	return limit
}

// priced is a pool with effective values computed once.
type priced struct {
	items  []domain.InventoryItem
	values []int64
}

func price(items []domain.InventoryItem, snap domain.ValueSnapshot) priced {
	p := priced{items: items, values: make([]int64, len(items))}
	for i, it := range items {
		p.values[i] = valuation.EffectiveValue(it, snap)
	}
	return p
}

func (p priced) total(idx []int) int64 {
	var sum int64
	for _, i := range idx {
		sum += p.values[i]
	}
	return sum
}

func (p priced) ids(idx []int) []int64 {
	out := make([]int64, len(idx))
	for i, j := range idx {
		out[i] = p.items[j].OwnedInstanceID
	}
	return out
}
