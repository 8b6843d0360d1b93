package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// CandidateStore implements domain.CandidateStore. Offer and ask item lists
// are stored as JSONB.
type CandidateStore struct {
	pool *pgxpool.Pool
}

func NewCandidateStore(pool *pgxpool.Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

const candidateCols = `id::text, counterparty, mode, offer, ask, offer_total, ask_total,
	gain, snapshot_age, found_at, executed_at`

func (s *CandidateStore) Insert(ctx context.Context, c domain.TradeCandidate) error {
	offer, err := json.Marshal(c.Offer)
	if err != nil {
		return fmt.Errorf("postgres: marshal offer %s: %w", c.ID, err)
	}
	ask, err := json.Marshal(c.Ask)
	if err != nil {
		return fmt.Errorf("postgres: marshal ask %s: %w", c.ID, err)
	}

	const query = `
		INSERT INTO trade_candidates (
			id, counterparty, mode, offer, ask,
			offer_total, ask_total, gain, snapshot_age, found_at, executed_at
		) VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = s.pool.Exec(ctx, query,
		c.ID, c.Counterparty, string(c.Mode), offer, ask,
		c.OfferTotal, c.AskTotal, c.Gain, c.SnapshotAge, c.FoundAt, c.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert candidate %s: %w", c.ID, err)
	}
	return nil
}

// GetByID returns domain.ErrNotFound for unknown or malformed ids.
func (s *CandidateStore) GetByID(ctx context.Context, id string) (domain.TradeCandidate, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.TradeCandidate{}, fmt.Errorf("postgres: get candidate %s: %w", id, domain.ErrNotFound)
	}
	row := s.pool.QueryRow(ctx, `SELECT `+candidateCols+` FROM trade_candidates WHERE id = $1::text::uuid`, id)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TradeCandidate{}, fmt.Errorf("postgres: get candidate %s: %w", id, domain.ErrNotFound)
		}
		return domain.TradeCandidate{}, fmt.Errorf("postgres: get candidate %s: %w", id, err)
	}
	return c, nil
}

func (s *CandidateStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.TradeCandidate, error) {
	query, args := listClause(`SELECT `+candidateCols+` FROM trade_candidates WHERE 1=1`, nil, "found_at", opts)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list candidates: %w", err)
	}
	return out, nil
}

func (s *CandidateStore) MarkExecuted(ctx context.Context, id string, executedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE trade_candidates SET executed_at = $2 WHERE id = $1::text::uuid`, id, executedAt)
	if err != nil {
		return fmt.Errorf("postgres: mark executed %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: mark executed %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanCandidate(row pgx.Row) (domain.TradeCandidate, error) {
	var (
		c          domain.TradeCandidate
		mode       string
		offer, ask []byte
	)
	if err := row.Scan(
		&c.ID, &c.Counterparty, &mode, &offer, &ask,
		&c.OfferTotal, &c.AskTotal, &c.Gain, &c.SnapshotAge, &c.FoundAt, &c.ExecutedAt,
	); err != nil {
		return domain.TradeCandidate{}, err
	}
	c.Mode = domain.SearchMode(mode)
	if err := json.Unmarshal(offer, &c.Offer); err != nil {
		return domain.TradeCandidate{}, fmt.Errorf("decode offer: %w", err)
	}
	if err := json.Unmarshal(ask, &c.Ask); err != nil {
		return domain.TradeCandidate{}, fmt.Errorf("decode ask: %w", err)
	}
	return c, nil
}

var _ domain.CandidateStore = (*CandidateStore)(nil)
