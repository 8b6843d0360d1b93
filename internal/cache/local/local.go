// Package local provides single-process stand-ins for the Redis-backed
// collaborators, used when redis.enabled is false.
package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// RateLimiter keeps one token bucket per key. A bucket refills limit tokens
// per window and holds at most limit, which approximates the sliding window
// of the Redis limiter.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*rate.Limiter
	waitLimit  int
	waitWindow time.Duration
}

// NewRateLimiter mirrors the Redis constructor: waitLimit per waitWindow is
// the budget Wait uses.
func NewRateLimiter(waitLimit int, waitWindow time.Duration) *RateLimiter {
	if waitLimit <= 0 {
		waitLimit = 1
	}
	if waitWindow <= 0 {
		waitWindow = time.Second
	}
	return &RateLimiter{
		buckets:    make(map[string]*rate.Limiter),
		waitLimit:  waitLimit,
		waitWindow: waitWindow,
	}
}

func (r *RateLimiter) bucket(key string, limit int, window time.Duration) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	every := rate.Every(window / time.Duration(max(limit, 1)))
	b, ok := r.buckets[key]
	if !ok {
		b = rate.NewLimiter(every, limit)
		r.buckets[key] = b
		return b
	}
	if b.Burst() != limit || b.Limit() != every {
		b.SetBurst(limit)
		b.SetLimit(every)
	}
	return b
}

func (r *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	return r.bucket(key, limit, window).Allow(), nil
}

func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	if err := r.bucket(key, r.waitLimit, r.waitWindow).Wait(ctx); err != nil {
		return fmt.Errorf("local: rate limit wait %s: %w", key, err)
	}
	return nil
}

// ProcessedSet remembers the most recent scanned counterparties, bounded so
// a long-running process does not grow without limit.
type ProcessedSet struct {
	cache *lru.Cache[int64, struct{}]
}

func NewProcessedSet(size int) (*ProcessedSet, error) {
	if size <= 0 {
		size = 100_000
	}
	c, err := lru.New[int64, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("local: processed set: %w", err)
	}
	return &ProcessedSet{cache: c}, nil
}

func (p *ProcessedSet) IsProcessed(_ context.Context, userID int64) (bool, error) {
	return p.cache.Contains(userID), nil
}

func (p *ProcessedSet) MarkProcessed(_ context.Context, userID int64) error {
	p.cache.Add(userID, struct{}{})
	return nil
}

func (p *ProcessedSet) Count(context.Context) (int64, error) {
	return int64(p.cache.Len()), nil
}

// SignalBus fans published payloads out to in-process subscribers. Slow
// subscribers drop payloads instead of blocking publishers.
type SignalBus struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[string]map[chan []byte]struct{})}
}

func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel closed when ctx is done.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

var (
	_ domain.RateLimiter  = (*RateLimiter)(nil)
	_ domain.ProcessedSet = (*ProcessedSet)(nil)
	_ domain.SignalBus    = (*SignalBus)(nil)
)
