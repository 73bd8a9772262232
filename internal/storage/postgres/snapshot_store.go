package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
	now  func() time.Time
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool, now: time.Now}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const insertSnapshotQuery = `
	INSERT INTO snapshot_history (
		agent_address, asset, is_realtime, usd_price, timestamp
	) VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (agent_address, asset, timestamp) DO NOTHING
`

// Insert adds one snapshot. Conflicting keys are silently ignored; the
// first writer wins.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.AgentAddress == "" || snap.Asset == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertSnapshotQuery,
		snap.AgentAddress,
		snap.Asset,
		snap.IsRealtime,
		snap.USDPrice,
		snap.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// InsertBulk adds snapshots in one transaction, ignoring rows whose key
// already exists. Commits atomically or rolls back entirely.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, snap := range snapshots {
		if snap == nil || snap.AgentAddress == "" || snap.Asset == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertSnapshotQuery,
			snap.AgentAddress,
			snap.Asset,
			snap.IsRealtime,
			snap.USDPrice,
			snap.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// LastTimestamp returns the most recent snapshot timestamp, or 0 when
// the store is empty.
func (s *SnapshotStore) LastTimestamp(ctx context.Context) (int64, error) {
	var ts int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(timestamp), 0) FROM snapshot_history`,
	).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("get last snapshot timestamp: %w", err)
	}
	return ts, nil
}

// GetLastWeek returns the asset's prices since the start of day seven
// days ago, shifted by tzOffsetMinutes, ordered ascending.
func (s *SnapshotStore) GetLastWeek(ctx context.Context, asset string, tzOffsetMinutes int) ([]*domain.PriceSample, error) {
	day := s.now().UTC().AddDate(0, 0, -7)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).
		Add(time.Duration(tzOffsetMinutes) * time.Minute).Unix()

	query := `
		SELECT timestamp, usd_price
		FROM snapshot_history
		WHERE asset = $1 AND timestamp >= $2
		ORDER BY timestamp ASC
	`

	rows, err := s.pool.Query(ctx, query, asset, start)
	if err != nil {
		return nil, fmt.Errorf("get last week prices: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// GetLastMonth returns one point per calendar day: the earliest sample
// of each day at or after the 30-day cutoff, ordered ascending.
func (s *SnapshotStore) GetLastMonth(ctx context.Context, asset string) ([]*domain.PriceSample, error) {
	start := s.now().UTC().AddDate(0, 0, -30).Unix()

	query := `
		SELECT timestamp, usd_price
		FROM snapshot_history
		WHERE asset = $1
		AND timestamp >= $2
		AND timestamp IN (
			SELECT MIN(timestamp)
			FROM snapshot_history
			WHERE asset = $1
			AND timestamp >= $2
			GROUP BY (to_timestamp(timestamp) AT TIME ZONE 'UTC')::date
		)
		ORDER BY timestamp ASC
	`

	rows, err := s.pool.Query(ctx, query, asset, start)
	if err != nil {
		return nil, fmt.Errorf("get last month prices: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// scanSamples scans (timestamp, price) rows into PriceSamples.
func scanSamples(rows pgx.Rows) ([]*domain.PriceSample, error) {
	var samples []*domain.PriceSample

	for rows.Next() {
		var sample domain.PriceSample
		if err := rows.Scan(&sample.Timestamp, &sample.Price); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		samples = append(samples, &sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}

	return samples, nil
}
