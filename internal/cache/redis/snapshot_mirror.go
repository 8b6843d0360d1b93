package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

const snapshotKey = "values:snapshot"

// SnapshotMirror shares the latest value snapshot between bot processes. It
// is both a sink (written after every successful fetch) and a source (read
// on warm start and while another process holds the refresh lock). Stored
// snapshots are announced on domain.ChannelSnapshot.
type SnapshotMirror struct {
	client *Client
	bus    domain.SignalBus
	ttl    time.Duration
}

// NewSnapshotMirror creates a mirror. ttl bounds how long a stale mirror can
// seed a new process; zero keeps it forever. bus may be nil.
func NewSnapshotMirror(c *Client, bus domain.SignalBus, ttl time.Duration) *SnapshotMirror {
	return &SnapshotMirror{client: c, bus: bus, ttl: ttl}
}

// StoreSnapshot writes snap in the file document format.
func (m *SnapshotMirror) StoreSnapshot(ctx context.Context, snap domain.ValueSnapshot) error {
	data, err := json.Marshal(domain.NewSnapshotDocument(snap))
	if err != nil {
		return fmt.Errorf("redis: encode snapshot: %w", err)
	}
	if err := m.client.Underlying().Set(ctx, m.client.Key(snapshotKey), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("redis: store snapshot: %w", err)
	}

	if m.bus == nil {
		return nil
	}
	event, err := domain.NewEvent("snapshot_refreshed", domain.SnapshotInfo{
		Items:      snap.Len(),
		AgeSeconds: 0,
		FetchedAt:  snap.FetchedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("redis: encode snapshot event: %w", err)
	}
	return m.bus.Publish(ctx, domain.ChannelSnapshot, event)
}

// LoadSnapshot returns the mirrored snapshot or domain.ErrNotFound.
func (m *SnapshotMirror) LoadSnapshot(ctx context.Context) (domain.ValueSnapshot, error) {
	data, err := m.client.Underlying().Get(ctx, m.client.Key(snapshotKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ValueSnapshot{}, domain.ErrNotFound
		}
		return domain.ValueSnapshot{}, fmt.Errorf("redis: load snapshot: %w", err)
	}

	var doc domain.SnapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.ValueSnapshot{}, fmt.Errorf("redis: decode snapshot: %w", err)
	}
	snap, ok := doc.Snapshot()
	if !ok {
		return domain.ValueSnapshot{}, fmt.Errorf("redis: decode snapshot: %w", domain.ErrBadPayload)
	}
	return snap, nil
}

var (
	_ domain.SnapshotSink   = (*SnapshotMirror)(nil)
	_ domain.SnapshotSource = (*SnapshotMirror)(nil)
)
