package valuation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

func snapshotOf(t *testing.T, raw string) domain.ValueSnapshot {
	t.Helper()
	var items map[string]domain.ValueRow
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return domain.ValueSnapshot{Items: items, FetchedAt: time.Unix(1700000000, 0)}
}

func TestValuedItem(t *testing.T) {
	snap := snapshotOf(t, `{"10": ["A","A",100,500,500,0,0,-1,0,0]}`)
	item := domain.InventoryItem{OwnedInstanceID: 1, AssetID: 10, FallbackValue: 100}
	r := Resolver{}

	if got := EffectiveValue(item, snap); got != 500 {
		t.Errorf("EffectiveValue = %d, want 500", got)
	}
	if got := MarketValue(item, snap); got != 500 {
		t.Errorf("MarketValue = %d, want 500", got)
	}
	if !IsValued(item, snap) {
		t.Error("IsValued = false, want true")
	}
	if r.IsProjected(item, snap) {
		t.Error("IsProjected = true, want false")
	}
}

func TestUnknownItemFallsBack(t *testing.T) {
	snap := domain.ValueSnapshot{}
	item := domain.InventoryItem{OwnedInstanceID: 2, AssetID: 99, FallbackValue: 250}

	if got := EffectiveValue(item, snap); got != 250 {
		t.Errorf("EffectiveValue = %d, want 250", got)
	}
	if !IsRapOnly(item, snap) {
		t.Error("IsRapOnly = false, want true")
	}
	if (Resolver{UnknownIsProjected: false}).IsProjected(item, snap) {
		t.Error("IsProjected = true with UnknownIsProjected=false")
	}
	if !(Resolver{UnknownIsProjected: true}).IsProjected(item, snap) {
		t.Error("IsProjected = false with UnknownIsProjected=true")
	}
}

func TestRapOnlyRow(t *testing.T) {
	snap := snapshotOf(t, `{"7": ["B","",800,-1,-1,null,null,1,null,null]}`)
	item := domain.InventoryItem{AssetID: 7, FallbackValue: 750}

	if got := MarketValue(item, snap); got != domain.NoValue {
		t.Errorf("MarketValue = %d, want -1", got)
	}
	if got := EffectiveValue(item, snap); got != 750 {
		t.Errorf("EffectiveValue = %d, want fallback 750", got)
	}
	if !(Resolver{}).IsProjected(item, snap) {
		t.Error("projected flag 1 should read as projected")
	}
}

func TestMissingFallbackIsZero(t *testing.T) {
	item := domain.InventoryItem{AssetID: 5}
	if got := EffectiveValue(item, domain.ValueSnapshot{}); got != 0 {
		t.Errorf("EffectiveValue = %d, want 0", got)
	}
}

func TestNegativeFallbackIsKept(t *testing.T) {
	item := domain.InventoryItem{AssetID: 5, FallbackValue: -1}
	if got := EffectiveValue(item, domain.ValueSnapshot{}); got != -1 {
		t.Errorf("EffectiveValue = %d, want -1", got)
	}
}

func TestFilterPerSide(t *testing.T) {
	snap := snapshotOf(t, `{
		"1": ["P","",10,100,100,0,0,1,0,0],
		"2": ["N","",10,200,200,0,0,-1,0,0]
	}`)
	items := []domain.InventoryItem{
		{OwnedInstanceID: 11, AssetID: 1},
		{OwnedInstanceID: 12, AssetID: 2},
	}
	r := Resolver{AvoidProjectedOnOffer: true, AvoidProjectedOnAsk: false}

	offer := r.FilterOffer(items, snap)
	if len(offer) != 1 || offer[0].AssetID != 2 {
		t.Errorf("FilterOffer = %+v, want only asset 2", offer)
	}
	ask := r.FilterAsk(items, snap)
	if len(ask) != 2 {
		t.Errorf("FilterAsk dropped items with strictness off: %+v", ask)
	}
	if len(items) != 2 || items[0].AssetID != 1 {
		t.Error("input slice was modified")
	}
}

func TestSortTopTotal(t *testing.T) {
	snap := snapshotOf(t, `{
		"1": ["a","",0,100,0,0,0,0,0,0],
		"2": ["b","",0,300,0,0,0,0,0,0],
		"3": ["c","",0,200,0,0,0,0,0,0]
	}`)
	items := []domain.InventoryItem{
		{OwnedInstanceID: 1, AssetID: 1},
		{OwnedInstanceID: 2, AssetID: 2},
		{OwnedInstanceID: 3, AssetID: 3},
		{OwnedInstanceID: 4, AssetID: 4, FallbackValue: 150},
	}

	sorted := SortByValue(items, snap)
	want := []int64{2, 3, 4, 1}
	for i, id := range want {
		if sorted[i].OwnedInstanceID != id {
			t.Fatalf("SortByValue[%d] = %d, want %d", i, sorted[i].OwnedInstanceID, id)
		}
	}
	if items[0].OwnedInstanceID != 1 {
		t.Error("SortByValue modified its input")
	}

	top := Top(sorted, 2)
	if got := Total(top, snap); got != 500 {
		t.Errorf("Total(top 2) = %d, want 500", got)
	}
	if got := len(Top(sorted, 10)); got != 4 {
		t.Errorf("Top beyond length = %d items, want 4", got)
	}
	if got := len(MinValue(items, snap, 200)); got != 2 {
		t.Errorf("MinValue(200) kept %d items, want 2", got)
	}
}

func TestExcludeAssetsAndKeys(t *testing.T) {
	mine := []domain.InventoryItem{{OwnedInstanceID: 1, AssetID: 10}, {OwnedInstanceID: 2, AssetID: 20}}
	theirs := []domain.InventoryItem{{OwnedInstanceID: 3, AssetID: 20}, {OwnedInstanceID: 4, AssetID: 30}}

	kept := ExcludeAssets(mine, []int64{20})
	if len(kept) != 1 || kept[0].AssetID != 10 {
		t.Errorf("ExcludeAssets = %+v", kept)
	}

	keys := AssetKeys(mine, theirs)
	want := []string{"10", "20", "30"}
	if len(keys) != len(want) {
		t.Fatalf("AssetKeys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("AssetKeys[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
}
