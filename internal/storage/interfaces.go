// Package storage defines the persistence contracts of the price-history
// engine. History is write-once: inserts are idempotent on the uniqueness
// key and nothing is ever updated or deleted.
package storage

import (
	"context"

	"github.com/byteball/perp-stats/internal/domain"
)

// SnapshotStore provides access to snapshot_history storage.
type SnapshotStore interface {
	// Insert adds one snapshot. Succeeds silently when the
	// (agent_address, asset, timestamp) key already exists.
	Insert(ctx context.Context, s *domain.Snapshot) error

	// InsertBulk adds snapshots in one transaction, ignoring rows whose
	// key already exists. Commits atomically or rolls back entirely.
	InsertBulk(ctx context.Context, snapshots []*domain.Snapshot) error

	// LastTimestamp returns the most recent snapshot timestamp across
	// all agents, or 0 when the store is empty.
	LastTimestamp(ctx context.Context) (int64, error)

	// GetLastWeek returns the asset's prices since the start of day
	// seven days ago, shifted by tzOffsetMinutes, ordered ascending.
	GetLastWeek(ctx context.Context, asset string, tzOffsetMinutes int) ([]*domain.PriceSample, error)

	// GetLastMonth returns one point per calendar day for the asset:
	// the earliest sample of each day at or after the 30-day cutoff,
	// ordered ascending.
	GetLastMonth(ctx context.Context, asset string) ([]*domain.PriceSample, error)
}

// TradeStore provides access to trades_history storage.
type TradeStore interface {
	// Insert adds one trade. Succeeds silently when the
	// (agent_address, asset, timestamp) key already exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// LastMainChainIndex returns the highest main-chain index across
	// all trades, or 0 when the store is empty.
	LastMainChainIndex(ctx context.Context) (uint64, error)

	// LastPriceInReserve returns the most recent reserve-denominated
	// price for an (agent, asset) pair, or 0 when none exists.
	LastPriceInReserve(ctx context.Context, agent, asset string) (float64, error)
}
