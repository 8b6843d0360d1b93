// Package valuation turns value snapshot rows and inventory items into the
// numbers and predicates the trade search works with. Everything here is
// pure; the snapshot is never modified.
package valuation

import (
	"sort"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// MarketValue returns the assigned value for the item's asset, or
// domain.NoValue when the snapshot has no row or the row is rap-only.
func MarketValue(item domain.InventoryItem, snap domain.ValueSnapshot) int64 {
	row, ok := snap.Row(item.AssetID)
	if !ok || !row.HasValue() {
		return domain.NoValue
	}
	return row.Value
}

// EffectiveValue is the market value when one exists, otherwise the item's
// fallback value as reported. A missing fallback is zero.
func EffectiveValue(item domain.InventoryItem, snap domain.ValueSnapshot) int64 {
	if v := MarketValue(item, snap); v >= 0 {
		return v
	}
	return item.FallbackValue
}

// IsValued reports whether the asset has an assigned value.
func IsValued(item domain.InventoryItem, snap domain.ValueSnapshot) bool {
	return MarketValue(item, snap) != domain.NoValue
}

// IsRapOnly reports whether the asset is priced only by its RAP.
func IsRapOnly(item domain.InventoryItem, snap domain.ValueSnapshot) bool {
	return MarketValue(item, snap) == domain.NoValue
}

// Resolver holds the projected-item policy. The offer and ask sides are
// configured independently.
type Resolver struct {
	// UnknownIsProjected is returned by IsProjected for assets the snapshot
	// does not know about.
	UnknownIsProjected bool
	// AvoidProjectedOnOffer drops projected items from what we give away.
	AvoidProjectedOnOffer bool
	// AvoidProjectedOnAsk drops projected items from what we ask for.
	AvoidProjectedOnAsk bool
}

// IsProjected reads the projected flag of the asset's row.
func (r Resolver) IsProjected(item domain.InventoryItem, snap domain.ValueSnapshot) bool {
	row, ok := snap.Row(item.AssetID)
	if !ok {
		return r.UnknownIsProjected
	}
	return row.Projected
}

// FilterProjected removes projected items when strict is set and returns
// items unchanged otherwise. The input slice is never modified.
func (r Resolver) FilterProjected(items []domain.InventoryItem, snap domain.ValueSnapshot, strict bool) []domain.InventoryItem {
	if !strict {
		return items
	}
	out := make([]domain.InventoryItem, 0, len(items))
	for _, it := range items {
		if !r.IsProjected(it, snap) {
			out = append(out, it)
		}
	}
	return out
}

// FilterOffer applies the offer-side projected policy.
func (r Resolver) FilterOffer(items []domain.InventoryItem, snap domain.ValueSnapshot) []domain.InventoryItem {
	return r.FilterProjected(items, snap, r.AvoidProjectedOnOffer)
}

// FilterAsk applies the ask-side projected policy.
func (r Resolver) FilterAsk(items []domain.InventoryItem, snap domain.ValueSnapshot) []domain.InventoryItem {
	return r.FilterProjected(items, snap, r.AvoidProjectedOnAsk)
}

// SortByValue returns a copy of items ordered by effective value, highest
// first. Ties keep their input order.
func SortByValue(items []domain.InventoryItem, snap domain.ValueSnapshot) []domain.InventoryItem {
	out := make([]domain.InventoryItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return EffectiveValue(out[i], snap) > EffectiveValue(out[j], snap)
	})
	return out
}

// Top returns at most k leading items.
func Top(items []domain.InventoryItem, k int) []domain.InventoryItem {
	if k < 0 || len(items) <= k {
		return items
	}
	return items[:k]
}

// Total sums the effective values of items.
func Total(items []domain.InventoryItem, snap domain.ValueSnapshot) int64 {
	var sum int64
	for _, it := range items {
		sum += EffectiveValue(it, snap)
	}
	return sum
}

// MinValue keeps items whose effective value is at least floor.
func MinValue(items []domain.InventoryItem, snap domain.ValueSnapshot, floor int64) []domain.InventoryItem {
	out := make([]domain.InventoryItem, 0, len(items))
	for _, it := range items {
		if EffectiveValue(it, snap) >= floor {
			out = append(out, it)
		}
	}
	return out
}

// Where keeps items matching pred.
func Where(items []domain.InventoryItem, snap domain.ValueSnapshot, pred func(domain.InventoryItem, domain.ValueSnapshot) bool) []domain.InventoryItem {
	out := make([]domain.InventoryItem, 0, len(items))
	for _, it := range items {
		if pred(it, snap) {
			out = append(out, it)
		}
	}
	return out
}

// ExcludeAssets drops items whose asset id is in keep.
func ExcludeAssets(items []domain.InventoryItem, keep []int64) []domain.InventoryItem {
	if len(keep) == 0 {
		return items
	}
	skip := make(map[int64]struct{}, len(keep))
	for _, id := range keep {
		skip[id] = struct{}{}
	}
	out := make([]domain.InventoryItem, 0, len(items))
	for _, it := range items {
		if _, ok := skip[it.AssetID]; !ok {
			out = append(out, it)
		}
	}
	return out
}

// AssetKeys returns the distinct snapshot keys of the given inventories, in
// first-seen order.
func AssetKeys(inventories ...[]domain.InventoryItem) []string {
	seen := make(map[int64]struct{})
	var keys []string
	for _, inv := range inventories {
		for _, it := range inv {
			if _, ok := seen[it.AssetID]; ok {
				continue
			}
			seen[it.AssetID] = struct{}{}
			keys = append(keys, domain.AssetKey(it.AssetID))
		}
	}
	return keys
}
