package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// InventoryService caches inventories for a short TTL. The operator's own
// inventory is read once per scan, so without the cache every counterparty
// would cost an extra paginated fetch.
type InventoryService struct {
	fetcher domain.InventoryFetcher
	cache   *expirable.LRU[int64, []domain.InventoryItem]
}

func NewInventoryService(fetcher domain.InventoryFetcher, size int, ttl time.Duration) *InventoryService {
	if size <= 0 {
		size = 64
	}
	return &InventoryService{
		fetcher: fetcher,
		cache:   expirable.NewLRU[int64, []domain.InventoryItem](size, nil, ttl),
	}
}

// Get returns the cached inventory or fetches it. Failed fetches are not
// cached.
func (s *InventoryService) Get(ctx context.Context, userID int64) ([]domain.InventoryItem, error) {
	if items, ok := s.cache.Get(userID); ok {
		return items, nil
	}
	items, err := s.fetcher.FetchInventory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: inventory %d: %w", userID, err)
	}
	s.cache.Add(userID, items)
	return items, nil
}

// Invalidate drops userID, e.g. after a trade changed the inventory.
func (s *InventoryService) Invalidate(userID int64) {
	s.cache.Remove(userID)
}
