package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// CandidateStore persists found trade candidates.
type CandidateStore interface {
	Insert(ctx context.Context, c TradeCandidate) error
	GetByID(ctx context.Context, id string) (TradeCandidate, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]TradeCandidate, error)
	MarkExecuted(ctx context.Context, id string, executedAt time.Time) error
}

// ScanStore persists the outcome of every counterparty scan.
type ScanStore interface {
	Record(ctx context.Context, r ScanResult) error
	ListRecent(ctx context.Context, opts ListOpts) ([]ScanResult, error)
	CountByOutcome(ctx context.Context, since time.Time) (map[ScanOutcome]int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
