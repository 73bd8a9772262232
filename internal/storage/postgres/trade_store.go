package postgres

import (
	"context"
	"fmt"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds one trade. Conflicting keys are silently ignored; the
// first writer wins.
func (s *TradeStore) Insert(ctx context.Context, trade *domain.Trade) error {
	if trade == nil || trade.AgentAddress == "" || trade.Asset == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades_history (
			agent_address, trigger_unit, mci, asset, is_realtime, usd_price, price_in_reserve, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (agent_address, asset, timestamp) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		trade.AgentAddress,
		trade.TriggerUnit,
		trade.MainChainIndex,
		trade.Asset,
		trade.IsRealtime,
		trade.USDPrice,
		trade.PriceInReserve,
		trade.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// LastMainChainIndex returns the highest main-chain index, or 0 when the
// store is empty.
func (s *TradeStore) LastMainChainIndex(ctx context.Context) (uint64, error) {
	var mci uint64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(mci), 0) FROM trades_history`,
	).Scan(&mci)
	if err != nil {
		return 0, fmt.Errorf("get last main chain index: %w", err)
	}
	return mci, nil
}

// LastPriceInReserve returns the most recent reserve-denominated price
// for an (agent, asset) pair, or 0 when none exists.
func (s *TradeStore) LastPriceInReserve(ctx context.Context, agent, asset string) (float64, error) {
	query := `
		SELECT price_in_reserve
		FROM trades_history
		WHERE agent_address = $1 AND asset = $2
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var price float64
	err := s.pool.QueryRow(ctx, query, agent, asset).Scan(&price)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get last price in reserve: %w", err)
	}
	return price, nil
}
