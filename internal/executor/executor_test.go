package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

type fakeBackend struct {
	err  error
	sent []domain.TradeCandidate
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Execute(_ context.Context, c domain.TradeCandidate) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, c)
	return nil
}

// countingLimiter allows the first n calls.
type countingLimiter struct {
	n, calls int
	err      error
}

func (l *countingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	l.calls++
	if l.err != nil {
		return false, l.err
	}
	return l.calls <= l.n, nil
}

func (l *countingLimiter) Wait(context.Context, string) error { return nil }

type fakeCandidates struct {
	domain.CandidateStore
	executed map[string]time.Time
}

func (f *fakeCandidates) MarkExecuted(_ context.Context, id string, at time.Time) error {
	f.executed[id] = at
	return nil
}

type fakeAudit struct {
	events []string
}

func (f *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func trade(id string, counterparty int64, offer, ask int64) domain.TradeCandidate {
	return domain.TradeCandidate{
		ID:           id,
		Counterparty: counterparty,
		Mode:         domain.ModeOneForOne,
		Offer:        []domain.InventoryItem{{OwnedInstanceID: offer}},
		Ask:          []domain.InventoryItem{{OwnedInstanceID: ask}},
		OfferTotal:   100,
		AskTotal:     150,
		Gain:         50,
	}
}

func TestExecuteDedupsByFingerprint(t *testing.T) {
	backend := &fakeBackend{}
	cands := &fakeCandidates{executed: map[string]time.Time{}}
	audit := &fakeAudit{}
	e := New(backend, Config{}, discard(), WithCandidateStore(cands), WithAuditStore(audit))
	ctx := context.Background()

	if err := e.Execute(ctx, trade("a", 7, 1, 2)); err != nil {
		t.Fatal(err)
	}
	// Same trade under a new candidate id.
	if err := e.Execute(ctx, trade("b", 7, 1, 2)); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if err := e.Execute(ctx, trade("c", 7, 1, 3)); err != nil {
		t.Fatal(err)
	}

	if len(backend.sent) != 2 {
		t.Fatalf("sent %d trades, want 2", len(backend.sent))
	}
	if _, ok := cands.executed["a"]; !ok {
		t.Error("candidate a not marked executed")
	}
	if len(audit.events) != 2 || audit.events[0] != "trade_executed" {
		t.Errorf("audit events = %v", audit.events)
	}
}

func TestExecuteHourlyCap(t *testing.T) {
	backend := &fakeBackend{}
	limiter := &countingLimiter{n: 1}
	e := New(backend, Config{MaxTradesPerHour: 1}, discard(), WithRateLimiter(limiter))
	ctx := context.Background()

	if err := e.Execute(ctx, trade("a", 1, 1, 2)); err != nil {
		t.Fatal(err)
	}
	blocked := trade("b", 2, 3, 4)
	if err := e.Execute(ctx, blocked); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	// A rate-limited trade is not remembered, so it is retried later.
	limiter.n = 10
	if err := e.Execute(ctx, blocked); err != nil {
		t.Fatalf("retry after cap: %v", err)
	}
	if len(backend.sent) != 2 {
		t.Fatalf("sent %d, want 2", len(backend.sent))
	}
}

func TestExecuteCapDisabled(t *testing.T) {
	limiter := &countingLimiter{n: 0}
	e := New(&fakeBackend{}, Config{MaxTradesPerHour: 0}, discard(), WithRateLimiter(limiter))
	if err := e.Execute(context.Background(), trade("a", 1, 1, 2)); err != nil {
		t.Fatal(err)
	}
	if limiter.calls != 0 {
		t.Errorf("limiter consulted %d times with cap disabled", limiter.calls)
	}
}

func TestExecuteBackendFailureIsRetryable(t *testing.T) {
	backend := &fakeBackend{err: errors.New("browser closed")}
	e := New(backend, Config{}, discard())
	c := trade("a", 1, 1, 2)

	if err := e.Execute(context.Background(), c); err == nil {
		t.Fatal("expected backend error")
	}
	backend.err = nil
	if err := e.Execute(context.Background(), c); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestExecuteLimiterError(t *testing.T) {
	e := New(&fakeBackend{}, Config{MaxTradesPerHour: 5}, discard(),
		WithRateLimiter(&countingLimiter{err: errors.New("redis down")}))
	if err := e.Execute(context.Background(), trade("a", 1, 1, 2)); err == nil {
		t.Fatal("expected limiter error to block the trade")
	}
}

func TestDedupTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	d := NewDedup(time.Minute)
	d.now = func() time.Time { return now }

	if d.IsDuplicate("k") {
		t.Fatal("first sighting reported duplicate")
	}
	if !d.IsDuplicate("k") {
		t.Fatal("second sighting not duplicate")
	}
	now = now.Add(time.Minute)
	if d.Cleanup() != 0 {
		t.Fatal("expired key survived cleanup")
	}
	if d.IsDuplicate("k") {
		t.Fatal("expired key reported duplicate")
	}
}

func TestLogExecutor(t *testing.T) {
	var gotUser int64
	var gotIDs []int64
	l := NewLogExecutor(func(u int64, ids []int64) string {
		gotUser, gotIDs = u, ids
		return "link"
	}, discard())

	if err := l.Execute(context.Background(), trade("a", 9, 1, 2)); err != nil {
		t.Fatal(err)
	}
	if gotUser != 9 || len(gotIDs) != 1 || gotIDs[0] != 2 {
		t.Errorf("link built for %d %v", gotUser, gotIDs)
	}
}
