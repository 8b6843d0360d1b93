package domain

// InventoryItem is one owned copy of a limited. OwnedInstanceID tells
// duplicate copies of the same asset apart; FallbackValue (the item's recent
// average price) is only used when the snapshot has no row for AssetID.
type InventoryItem struct {
	OwnedInstanceID int64  `json:"owned_instance_id"`
	AssetID         int64  `json:"asset_id"`
	Name            string `json:"name"`
	FallbackValue   int64  `json:"fallback_value"`
}

// OwnedIDs returns the owned instance ids of items in order.
func OwnedIDs(items []InventoryItem) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.OwnedInstanceID
	}
	return ids
}
