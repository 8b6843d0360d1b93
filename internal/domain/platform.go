package domain

import "context"

// ValueFeed fetches a complete value table from the upstream source.
type ValueFeed interface {
	FetchValues(ctx context.Context) (map[string]ValueRow, error)
}

// InventoryFetcher returns the tradable (not on hold) limiteds of a user.
type InventoryFetcher interface {
	FetchInventory(ctx context.Context, userID int64) ([]InventoryItem, error)
}

// TradeChecker reports whether the authenticated account can trade with a user.
type TradeChecker interface {
	CanTradeWith(ctx context.Context, userID int64) (bool, error)
}

// CounterpartySource discovers users worth scanning.
type CounterpartySource interface {
	RecentTraders(ctx context.Context) ([]int64, error)
}

// TradeExecutor sends a chosen trade. Browser automation lives behind this.
type TradeExecutor interface {
	Execute(ctx context.Context, c TradeCandidate) error
	Name() string
}
