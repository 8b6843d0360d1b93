package local

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	r := NewRateLimiter(1, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := r.Allow(ctx, "trades", 3, time.Hour)
		if err != nil || !ok {
			t.Fatalf("call %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := r.Allow(ctx, "trades", 3, time.Hour); ok {
		t.Fatal("fourth call within the hour allowed")
	}
	if ok, _ := r.Allow(ctx, "other", 3, time.Hour); !ok {
		t.Fatal("keys share a bucket")
	}
	if ok, _ := r.Allow(ctx, "zero", 0, time.Hour); ok {
		t.Fatal("zero limit allowed a call")
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	r := NewRateLimiter(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Wait(ctx, "k"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	cancel()
	if err := r.Wait(ctx, "k"); err == nil {
		t.Fatal("wait on an exhausted bucket with a cancelled context succeeded")
	}
}

func TestProcessedSet(t *testing.T) {
	p, err := NewProcessedSet(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		_ = p.MarkProcessed(ctx, id)
	}
	if ok, _ := p.IsProcessed(ctx, 1); ok {
		t.Error("oldest id survived eviction")
	}
	if ok, _ := p.IsProcessed(ctx, 3); !ok {
		t.Error("newest id missing")
	}
	if n, _ := p.Count(ctx); n != 2 {
		t.Errorf("count = %d", n)
	}
}

func TestSignalBus(t *testing.T) {
	b := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "scans")
	if err != nil {
		t.Fatal(err)
	}

	_ = b.Publish(ctx, "candidates", []byte("ignored"))
	_ = b.Publish(ctx, "scans", []byte("hello"))
	if got := string(<-ch); got != "hello" {
		t.Fatalf("got %q", got)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unexpected payload after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
