// Package backfill resumes snapshot history from a persisted watermark
// and fills the hourly grid from external market prices.
package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/byteball/perp-stats/internal/storage"
)

// DefaultLookback bounds how far back a fresh store is backfilled.
const DefaultLookback = 30 * 24 * time.Hour

// ResolveStart computes the backfill resume point: the most recent
// persisted snapshot timestamp, floored at 30 days before now. The
// watermark is recomputed from history on every run, never cached.
func ResolveStart(ctx context.Context, snapshots storage.SnapshotStore, now time.Time) (int64, error) {
	last, err := snapshots.LastTimestamp(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve snapshot watermark: %w", err)
	}

	floor := now.Add(-DefaultLookback).Unix()
	if last > floor {
		return last, nil
	}
	return floor, nil
}

// ResolveLastMCI computes the trade-ingestion resume point: the highest
// persisted main-chain index, or 0 for a fresh store.
func ResolveLastMCI(ctx context.Context, trades storage.TradeStore) (uint64, error) {
	mci, err := trades.LastMainChainIndex(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve trade watermark: %w", err)
	}
	return mci, nil
}
