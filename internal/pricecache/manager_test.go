package pricecache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

type fakeFeed struct {
	mu    sync.Mutex
	calls int
	items map[string]domain.ValueRow
	err   error
	delay time.Duration
}

func (f *fakeFeed) FetchValues(context.Context) (map[string]domain.ValueRow, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeFeed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock { return &clock{t: time.Unix(1_700_000_000, 0)} }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func rows(keys ...string) map[string]domain.ValueRow {
	out := make(map[string]domain.ValueRow, len(keys))
	for _, k := range keys {
		out[k] = domain.ValueRow{Name: "item " + k, RAP: 100, Value: 200, DefaultValue: 200}
	}
	return out
}

func testConfig() Config {
	return Config{
		Enabled:            true,
		TTL:                600 * time.Second,
		MinRefreshInterval: 120 * time.Second,
		RefreshOnMissingID: true,
		FetchTimeout:       time.Second,
	}
}

func TestAbsentFileAndFailedFetch(t *testing.T) {
	feed := &fakeFeed{err: errors.New("connection refused")}
	store := NewFileStore(filepath.Join(t.TempDir(), "values.json"))
	c := newClock()
	m := NewManager(testConfig(), feed, store, discardLogger(), WithClock(c.Now))

	snap := m.GetSnapshot(context.Background(), nil, false)
	if !snap.IsEmpty() {
		t.Fatalf("snapshot has %d items, want none", snap.Len())
	}
	if got := m.SnapshotAgeSeconds(); got != -1 {
		t.Errorf("SnapshotAgeSeconds = %d, want -1", got)
	}
	if feed.Calls() != 1 {
		t.Errorf("fetch calls = %d, want 1", feed.Calls())
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Errorf("cache file written after failed fetch: %v", err)
	}
}

func TestTTLAndMinInterval(t *testing.T) {
	feed := &fakeFeed{items: rows("1", "2")}
	c := newClock()
	m := NewManager(testConfig(), feed, nil, discardLogger(), WithClock(c.Now))
	ctx := context.Background()

	m.GetSnapshot(ctx, nil, false)
	if feed.Calls() != 1 {
		t.Fatalf("initial fetch calls = %d, want 1", feed.Calls())
	}

	c.Advance(300 * time.Second)
	m.GetSnapshot(ctx, nil, false)
	if feed.Calls() != 1 {
		t.Errorf("fresh snapshot refetched: calls = %d", feed.Calls())
	}
	if got := m.SnapshotAgeSeconds(); got != 300 {
		t.Errorf("SnapshotAgeSeconds = %d, want 300", got)
	}

	c.Advance(301 * time.Second)
	m.GetSnapshot(ctx, nil, false)
	if feed.Calls() != 2 {
		t.Errorf("stale snapshot not refetched: calls = %d", feed.Calls())
	}
}

func TestMinIntervalHoldsWhileUpstreamIsDown(t *testing.T) {
	feed := &fakeFeed{items: rows("1")}
	c := newClock()
	m := NewManager(testConfig(), feed, nil, discardLogger(), WithClock(c.Now))
	ctx := context.Background()

	m.GetSnapshot(ctx, nil, false)
	feed.err = errors.New("503")

	c.Advance(700 * time.Second)
	snap := m.GetSnapshot(ctx, nil, false)
	if feed.Calls() != 2 {
		t.Fatalf("calls = %d, want 2", feed.Calls())
	}
	if snap.Len() != 1 {
		t.Errorf("last good snapshot lost: %d items", snap.Len())
	}

	c.Advance(60 * time.Second)
	m.GetSnapshot(ctx, nil, false)
	if feed.Calls() != 2 {
		t.Errorf("attempt inside min interval: calls = %d", feed.Calls())
	}

	c.Advance(61 * time.Second)
	m.GetSnapshot(ctx, nil, false)
	if feed.Calls() != 3 {
		t.Errorf("attempt after min interval missing: calls = %d", feed.Calls())
	}
}

func TestMissingIDTriggersRefresh(t *testing.T) {
	feed := &fakeFeed{items: rows("1")}
	c := newClock()
	cfg := testConfig()
	m := NewManager(cfg, feed, nil, discardLogger(), WithClock(c.Now))
	ctx := context.Background()

	m.GetSnapshot(ctx, nil, false)

	c.Advance(60 * time.Second)
	m.GetSnapshot(ctx, []string{"1", "2"}, false)
	if feed.Calls() != 1 {
		t.Errorf("missing id bypassed min interval: calls = %d", feed.Calls())
	}

	c.Advance(61 * time.Second)
	feed.items = rows("1", "2")
	snap := m.GetSnapshot(ctx, []string{"1", "2"}, false)
	if feed.Calls() != 2 {
		t.Errorf("missing id did not refresh: calls = %d", feed.Calls())
	}
	if !snap.Has("2") {
		t.Error("refreshed snapshot lacks id 2")
	}

	c.Advance(200 * time.Second)
	m.GetSnapshot(ctx, []string{"1", "2"}, false)
	if feed.Calls() != 2 {
		t.Errorf("present ids refreshed: calls = %d", feed.Calls())
	}
}

func TestMissingIDIgnoredWhenDisabled(t *testing.T) {
	feed := &fakeFeed{items: rows("1")}
	c := newClock()
	cfg := testConfig()
	cfg.RefreshOnMissingID = false
	m := NewManager(cfg, feed, nil, discardLogger(), WithClock(c.Now))
	ctx := context.Background()

	m.GetSnapshot(ctx, nil, false)
	c.Advance(200 * time.Second)
	m.GetSnapshot(ctx, []string{"42"}, false)
	if feed.Calls() != 1 {
		t.Errorf("calls = %d, want 1", feed.Calls())
	}
}

func TestForceRefreshBypassesChecks(t *testing.T) {
	feed := &fakeFeed{items: rows("1")}
	c := newClock()
	m := NewManager(testConfig(), feed, nil, discardLogger(), WithClock(c.Now))
	ctx := context.Background()

	m.GetSnapshot(ctx, nil, false)
	c.Advance(time.Second)
	m.GetSnapshot(ctx, nil, true)
	if feed.Calls() != 2 {
		t.Fatalf("force refresh skipped: calls = %d", feed.Calls())
	}
	if !m.LastAttempt().Equal(c.Now()) {
		t.Errorf("LastAttempt = %v, want %v", m.LastAttempt(), c.Now())
	}

	c.Advance(700 * time.Second)
	m.GetSnapshot(ctx, nil, false)
	if feed.Calls() != 3 {
		t.Errorf("calls = %d, want 3", feed.Calls())
	}
}

func TestEmptyPayloadIsFailure(t *testing.T) {
	feed := &fakeFeed{items: rows("1")}
	c := newClock()
	m := NewManager(testConfig(), feed, nil, discardLogger(), WithClock(c.Now))
	ctx := context.Background()

	m.GetSnapshot(ctx, nil, false)
	feed.items = map[string]domain.ValueRow{}
	c.Advance(time.Second)
	snap := m.GetSnapshot(ctx, nil, true)
	if snap.Len() != 1 {
		t.Errorf("empty payload replaced snapshot: %d items", snap.Len())
	}
}

func TestPersistAndWarmStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "values.json")
	feed := &fakeFeed{items: rows("10", "20")}
	c := newClock()
	ctx := context.Background()

	first := NewManager(testConfig(), feed, NewFileStore(path), discardLogger(), WithClock(c.Now))
	first.GetSnapshot(ctx, nil, false)

	c.Advance(100 * time.Second)
	second := NewManager(testConfig(), feed, NewFileStore(path), discardLogger(), WithClock(c.Now))
	snap := second.GetSnapshot(ctx, nil, false)
	if feed.Calls() != 1 {
		t.Errorf("warm start refetched: calls = %d", feed.Calls())
	}
	if snap.Len() != 2 || snap.Items["10"] != feed.items["10"] {
		t.Errorf("loaded snapshot = %+v", snap.Items)
	}
	if got := second.SnapshotAgeSeconds(); got != 100 {
		t.Errorf("SnapshotAgeSeconds = %d, want 100", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestDisabledCacheAlwaysFetches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.json")
	feed := &fakeFeed{items: rows("1")}
	cfg := testConfig()
	cfg.Enabled = false
	c := newClock()
	m := NewManager(cfg, feed, NewFileStore(path), discardLogger(), WithClock(c.Now))
	ctx := context.Background()

	m.GetSnapshot(ctx, nil, false)
	m.GetSnapshot(ctx, nil, false)
	if feed.Calls() != 2 {
		t.Errorf("calls = %d, want 2", feed.Calls())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("disabled cache wrote %s", path)
	}
}

func TestMalformedFileIsNoCache(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"garbage":  "{not json",
		"no_stamp": `{"items": {"1": ["a","",1,2]}}`,
		"no_items": `{"fetched_at": 1700000000.5}`,
		"bad_row":  `{"items": {"1": {"x": 1}}, "fetched_at": 1}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewFileStore(path).Load()
			if !errors.Is(err, domain.ErrBadPayload) {
				t.Errorf("Load err = %v, want ErrBadPayload", err)
			}
		})
	}
}

type memSink struct {
	mu    sync.Mutex
	snaps []domain.ValueSnapshot
}

func (s *memSink) StoreSnapshot(_ context.Context, snap domain.ValueSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *memSink) LoadSnapshot(context.Context) (domain.ValueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return domain.ValueSnapshot{}, domain.ErrNotFound
	}
	return s.snaps[len(s.snaps)-1], nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

func TestSinksAndSources(t *testing.T) {
	shared := &memSink{}
	feed := &fakeFeed{items: rows("1", "2", "3")}
	c := newClock()
	ctx := context.Background()

	writer := NewManager(testConfig(), feed, nil, discardLogger(), WithClock(c.Now), WithSinks(shared))
	writer.GetSnapshot(ctx, nil, false)
	if len(shared.snaps) != 1 {
		t.Fatalf("sink received %d snapshots, want 1", len(shared.snaps))
	}

	reader := NewManager(testConfig(), &fakeFeed{err: errors.New("unused")}, nil, discardLogger(),
		WithClock(c.Now), WithSources(shared))
	snap := reader.GetSnapshot(ctx, nil, false)
	if snap.Len() != 3 {
		t.Errorf("warm start from source: %d items, want 3", snap.Len())
	}
}

func TestLockHeldAdoptsNewerSharedSnapshot(t *testing.T) {
	c := newClock()
	shared := &memSink{}
	shared.snaps = append(shared.snaps, domain.ValueSnapshot{Items: rows("7"), FetchedAt: c.Now().Add(-10 * time.Second)})

	feed := &fakeFeed{items: rows("1")}
	cfg := testConfig()
	m := NewManager(cfg, feed, nil, discardLogger(), WithClock(c.Now), WithSources(shared), WithRefreshLock(heldLock{}))
	ctx := context.Background()

	// Warm start takes the shared snapshot; it is fresh, so no refresh follows.
	snap := m.GetSnapshot(ctx, nil, false)
	if !snap.Has("7") || feed.Calls() != 0 {
		t.Fatalf("warm start: has7=%v calls=%d", snap.Has("7"), feed.Calls())
	}

	shared.snaps = append(shared.snaps, domain.ValueSnapshot{Items: rows("7", "8"), FetchedAt: c.Now().Add(5 * time.Second)})
	c.Advance(10 * time.Second)
	snap = m.GetSnapshot(ctx, nil, true)
	if feed.Calls() != 0 {
		t.Errorf("fetched while lock held: calls = %d", feed.Calls())
	}
	if !snap.Has("8") {
		t.Error("newer shared snapshot not adopted")
	}
}

func TestConcurrentCallersShareOneFetch(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "values.json"))
	now := time.Unix(1_700_000_000, 0)
	old := domain.ValueSnapshot{Items: rows("1"), FetchedAt: now.Add(-time.Hour)}
	if err := store.Save(old); err != nil {
		t.Fatal(err)
	}

	feed := &fakeFeed{items: rows("1", "2"), delay: 20 * time.Millisecond}
	m := NewManager(testConfig(), feed, store, discardLogger(),
		WithClock(func() time.Time { return now }))

	const callers = 32
	got := make([]domain.ValueSnapshot, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = m.GetSnapshot(context.Background(), nil, false)
		}(i)
	}
	close(start)
	wg.Wait()

	if n := feed.Calls(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
	for i, snap := range got {
		if snap.Len() != 2 || !snap.FetchedAt.Equal(now) {
			t.Errorf("caller %d got %d items fetched at %v", i, snap.Len(), snap.FetchedAt)
		}
	}
}

func TestPersistedFetchTimeSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.json")
	now := time.Unix(1_760_000_000, 987_654_321)
	clockAt := func() time.Time { return now }

	first := NewManager(testConfig(), &fakeFeed{items: rows("1")}, NewFileStore(path), discardLogger(), WithClock(clockAt))
	saved := first.GetSnapshot(context.Background(), nil, false)

	feed := &fakeFeed{items: rows("1")}
	second := NewManager(testConfig(), feed, NewFileStore(path), discardLogger(), WithClock(clockAt))
	loaded := second.GetSnapshot(context.Background(), nil, false)

	if !loaded.FetchedAt.Equal(saved.FetchedAt) {
		t.Errorf("fetched_at %v reloaded as %v", saved.FetchedAt, loaded.FetchedAt)
	}
	if feed.Calls() != 0 {
		t.Errorf("reloaded snapshot refetched: calls = %d", feed.Calls())
	}
}
