package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// ScanStore implements domain.ScanStore.
type ScanStore struct {
	pool *pgxpool.Pool
}

func NewScanStore(pool *pgxpool.Pool) *ScanStore {
	return &ScanStore{pool: pool}
}

func (s *ScanStore) Record(ctx context.Context, r domain.ScanResult) error {
	var candidateID *string
	if r.CandidateID != "" {
		candidateID = &r.CandidateID
	}
	const query = `
		INSERT INTO scan_results (counterparty, outcome, candidate_id, mode, detail, scanned_at)
		VALUES ($1, $2, $3::text::uuid, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		r.Counterparty, string(r.Outcome), candidateID, string(r.Mode), r.Detail, r.ScannedAt)
	if err != nil {
		return fmt.Errorf("postgres: record scan %d: %w", r.Counterparty, err)
	}
	return nil
}

func (s *ScanStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.ScanResult, error) {
	query, args := listClause(`
		SELECT counterparty, outcome, COALESCE(candidate_id::text, ''), mode, detail, scanned_at
		FROM scan_results WHERE 1=1`, nil, "scanned_at", opts)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list scans: %w", err)
	}
	defer rows.Close()

	var out []domain.ScanResult
	for rows.Next() {
		var (
			r             domain.ScanResult
			outcome, mode string
		)
		if err := rows.Scan(&r.Counterparty, &outcome, &r.CandidateID, &mode, &r.Detail, &r.ScannedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan scan result: %w", err)
		}
		r.Outcome = domain.ScanOutcome(outcome)
		r.Mode = domain.SearchMode(mode)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list scans: %w", err)
	}
	return out, nil
}

// CountByOutcome tallies scans at or after since.
func (s *ScanStore) CountByOutcome(ctx context.Context, since time.Time) (map[domain.ScanOutcome]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT outcome, COUNT(*) FROM scan_results WHERE scanned_at >= $1 GROUP BY outcome`, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: count scans: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ScanOutcome]int64)
	for rows.Next() {
		var (
			outcome string
			n       int64
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("postgres: count scans: %w", err)
		}
		counts[domain.ScanOutcome(outcome)] = n
	}
	return counts, rows.Err()
}

var _ domain.ScanStore = (*ScanStore)(nil)
