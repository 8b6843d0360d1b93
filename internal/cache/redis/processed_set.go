package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

const processedKey = "counterparties:processed"

// ProcessedSet records scanned counterparties in a Redis set so restarts and
// sibling processes skip them.
type ProcessedSet struct {
	client *Client
}

// NewProcessedSet creates a ProcessedSet backed by the given Client.
func NewProcessedSet(c *Client) *ProcessedSet {
	return &ProcessedSet{client: c}
}

func (p *ProcessedSet) IsProcessed(ctx context.Context, userID int64) (bool, error) {
	ok, err := p.client.Underlying().SIsMember(ctx, p.client.Key(processedKey), strconv.FormatInt(userID, 10)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: is processed %d: %w", userID, err)
	}
	return ok, nil
}

func (p *ProcessedSet) MarkProcessed(ctx context.Context, userID int64) error {
	if err := p.client.Underlying().SAdd(ctx, p.client.Key(processedKey), strconv.FormatInt(userID, 10)).Err(); err != nil {
		return fmt.Errorf("redis: mark processed %d: %w", userID, err)
	}
	return nil
}

func (p *ProcessedSet) Count(ctx context.Context) (int64, error) {
	n, err := p.client.Underlying().SCard(ctx, p.client.Key(processedKey)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: count processed: %w", err)
	}
	return n, nil
}

var _ domain.ProcessedSet = (*ProcessedSet)(nil)
