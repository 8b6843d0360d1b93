// Package pricecache owns the lifecycle of the value snapshot: warm start from
// disk or a shared source, lazy refresh from the upstream feed under a
// freshness policy, and atomic persistence of every successful fetch.
package pricecache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
)

// RefreshLockKey is the LockManager key guarding upstream fetches across
// processes.
const RefreshLockKey = "pricecache:refresh"

// Config is the freshness policy.
type Config struct {
	// Enabled turns caching on. When false every call fetches, nothing is
	// persisted and the disk is never read.
	Enabled            bool
	TTL                time.Duration
	MinRefreshInterval time.Duration
	RefreshOnMissingID bool
	FetchTimeout       time.Duration
	LockTTL            time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithSinks hands every freshly fetched snapshot to the given sinks.
func WithSinks(sinks ...domain.SnapshotSink) Option {
	return func(m *Manager) { m.sinks = append(m.sinks, sinks...) }
}

// WithSources sets the fallbacks consulted, in order, when the local file has
// no snapshot, and when another process holds the refresh lock.
func WithSources(sources ...domain.SnapshotSource) Option {
	return func(m *Manager) { m.sources = append(m.sources, sources...) }
}

// WithRefreshLock serializes upstream fetches across processes.
func WithRefreshLock(locker domain.LockManager) Option {
	return func(m *Manager) { m.locker = locker }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager serves the value snapshot. All state sits behind one mutex, and the
// decide, fetch, replace and persist sequence runs entirely under it.
type Manager struct {
	cfg     Config
	feed    domain.ValueFeed
	store   *FileStore
	sinks   []domain.SnapshotSink
	sources []domain.SnapshotSource
	locker  domain.LockManager
	now     func() time.Time
	logger  *slog.Logger

	mu          sync.Mutex
	snap        domain.ValueSnapshot
	lastAttempt time.Time
	warmed      bool
}

// NewManager creates a Manager. store may be nil to disable local persistence.
func NewManager(cfg Config, feed domain.ValueFeed, store *FileStore, logger *slog.Logger, opts ...Option) *Manager {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.FetchTimeout + 10*time.Second
	}
	m := &Manager{
		cfg:    cfg,
		feed:   feed,
		store:  store,
		now:    time.Now,
		logger: logger.With(slog.String("component", "pricecache")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetSnapshot returns the current snapshot, refreshing it first when the
// policy calls for it. ensureIDs are asset keys the caller is about to value;
// forceRefresh skips the TTL and interval checks. Upstream and persistence
// failures are logged and the last good snapshot is returned.
func (m *Manager) GetSnapshot(ctx context.Context, ensureIDs []string, forceRefresh bool) domain.ValueSnapshot {
	m.mu.Lock()
	now := m.now()
	m.warmStartLocked(ctx)

	var fresh *domain.ValueSnapshot
	if forceRefresh || m.staleLocked(now) || m.missingLocked(ensureIDs, now) {
		fresh = m.refreshLocked(ctx, now)
	}
	snap := m.snap
	m.mu.Unlock()

	if fresh != nil {
		m.publish(ctx, *fresh)
	}
	return snap
}

// Peek returns the snapshot in use without contacting the upstream feed. A
// process that has not served a snapshot yet warm-starts from the file or
// the configured sources first.
func (m *Manager) Peek(ctx context.Context) domain.ValueSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warmStartLocked(ctx)
	return m.snap
}

// SnapshotAgeSeconds returns whole seconds since the snapshot was fetched, or
// -1 when no snapshot has been loaded.
func (m *Manager) SnapshotAgeSeconds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.AgeSeconds(m.now())
}

// LastAttempt returns the time of the most recent upstream attempt.
func (m *Manager) LastAttempt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAttempt
}

func (m *Manager) warmStartLocked(ctx context.Context) {
	if m.warmed || !m.cfg.Enabled || !m.snap.IsEmpty() {
		return
	}
	m.warmed = true

	if m.store != nil {
		snap, err := m.store.Load()
		switch {
		case err == nil && !snap.IsEmpty():
			m.adoptLocked(snap, "file")
			return
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			m.logger.WarnContext(ctx, "ignoring unreadable value cache",
				slog.String("path", m.store.Path()),
				slog.String("error", err.Error()),
			)
		}
	}

	if snap, from, ok := m.loadFromSources(ctx); ok {
		m.adoptLocked(snap, from)
		m.persistLocked(ctx, snap)
	}
}

func (m *Manager) adoptLocked(snap domain.ValueSnapshot, from string) {
	m.snap = snap
	m.observeLocked()
	m.logger.Info("value snapshot loaded",
		slog.String("from", from),
		slog.Int("items", snap.Len()),
		slog.Int("age_seconds", snap.AgeSeconds(m.now())),
	)
}

func (m *Manager) loadFromSources(ctx context.Context) (domain.ValueSnapshot, string, bool) {
	for i, src := range m.sources {
		snap, err := src.LoadSnapshot(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				m.logger.WarnContext(ctx, "snapshot source failed",
					slog.Int("source", i),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		if !snap.IsEmpty() {
			return snap, sourceName(i), true
		}
	}
	return domain.ValueSnapshot{}, "", false
}

func sourceName(i int) string {
	return "source-" + strconv.Itoa(i)
}

// staleLocked applies the TTL and the attempt interval. With caching disabled
// every call is a refresh.
func (m *Manager) staleLocked(now time.Time) bool {
	if !m.cfg.Enabled {
		return true
	}
	if !m.snap.FetchedAt.IsZero() && now.Sub(m.snap.FetchedAt) <= m.cfg.TTL {
		return false
	}
	return m.intervalElapsedLocked(now)
}

func (m *Manager) missingLocked(ensureIDs []string, now time.Time) bool {
	if !m.cfg.Enabled || !m.cfg.RefreshOnMissingID || len(ensureIDs) == 0 {
		return false
	}
	for _, id := range ensureIDs {
		if !m.snap.Has(id) {
			return m.intervalElapsedLocked(now)
		}
	}
	return false
}

func (m *Manager) intervalElapsedLocked(now time.Time) bool {
	return m.lastAttempt.IsZero() || now.Sub(m.lastAttempt) > m.cfg.MinRefreshInterval
}

// refreshLocked performs one upstream attempt. It returns the new snapshot on
// success and nil otherwise.
func (m *Manager) refreshLocked(ctx context.Context, now time.Time) *domain.ValueSnapshot {
	m.lastAttempt = now

	if m.locker != nil && m.cfg.Enabled {
		unlock, err := m.locker.Acquire(ctx, RefreshLockKey, m.cfg.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			metrics.CacheRefreshesTotal.WithLabelValues("lock_held").Inc()
			m.adoptSharedLocked(ctx)
			return nil
		case err != nil:
			m.logger.WarnContext(ctx, "refresh lock unavailable, fetching anyway",
				slog.String("error", err.Error()),
			)
		default:
			defer unlock()
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	start := time.Now()
	items, err := m.feed.FetchValues(fetchCtx)
	cancel()
	metrics.ValueFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CacheRefreshesTotal.WithLabelValues("fetch_error").Inc()
		m.logger.WarnContext(ctx, "value refresh failed, keeping last snapshot",
			slog.String("error", err.Error()),
			slog.Int("items", m.snap.Len()),
		)
		return nil
	}
	if len(items) == 0 {
		metrics.CacheRefreshesTotal.WithLabelValues("empty").Inc()
		m.logger.WarnContext(ctx, "value refresh returned no items, keeping last snapshot",
			slog.Int("items", m.snap.Len()),
		)
		return nil
	}

	fresh := domain.ValueSnapshot{Items: items, FetchedAt: m.now().Truncate(time.Microsecond)}
	m.snap = fresh
	m.observeLocked()
	metrics.CacheRefreshesTotal.WithLabelValues("ok").Inc()
	m.logger.InfoContext(ctx, "value snapshot refreshed",
		slog.Int("items", fresh.Len()),
		slog.Duration("took", time.Since(start)),
	)

	m.persistLocked(ctx, fresh)
	return &fresh
}

// adoptSharedLocked is used while another process is fetching: take its last
// published snapshot if it is newer than ours.
func (m *Manager) adoptSharedLocked(ctx context.Context) {
	snap, from, ok := m.loadFromSources(ctx)
	if !ok || !snap.FetchedAt.After(m.snap.FetchedAt) {
		m.logger.DebugContext(ctx, "refresh lock held elsewhere, keeping current snapshot")
		return
	}
	m.adoptLocked(snap, from)
	m.persistLocked(ctx, snap)
}

func (m *Manager) persistLocked(ctx context.Context, snap domain.ValueSnapshot) {
	if !m.cfg.Enabled || m.store == nil {
		return
	}
	if err := m.store.Save(snap); err != nil {
		metrics.CachePersistErrorsTotal.Inc()
		m.logger.WarnContext(ctx, "value snapshot not persisted",
			slog.String("path", m.store.Path()),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Manager) observeLocked() {
	metrics.SnapshotItems.Set(float64(m.snap.Len()))
	if !m.snap.FetchedAt.IsZero() {
		metrics.SnapshotFetchedAt.Set(float64(m.snap.FetchedAt.Unix()))
	}
}

func (m *Manager) publish(ctx context.Context, snap domain.ValueSnapshot) {
	for _, sink := range m.sinks {
		if err := sink.StoreSnapshot(ctx, snap); err != nil {
			m.logger.WarnContext(ctx, "snapshot sink failed",
				slog.String("error", err.Error()),
			)
		}
	}
}
