package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by composite key
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{data: make(map[string]*domain.Trade)}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// tradeKey generates the uniqueness key for a trade.
func tradeKey(agent, asset string, timestamp int64) string {
	return fmt.Sprintf("%s|%s|%d", agent, asset, timestamp)
}

// Insert adds one trade; an existing key is silently kept.
func (s *TradeStore) Insert(_ context.Context, trade *domain.Trade) error {
	if trade == nil || trade.AgentAddress == "" || trade.Asset == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := tradeKey(trade.AgentAddress, trade.Asset, trade.Timestamp)
	if _, exists := s.data[key]; exists {
		return nil
	}

	copy := *trade
	if copy.CreatedAt == 0 {
		copy.CreatedAt = time.Now().Unix()
	}
	s.data[key] = &copy
	return nil
}

// LastMainChainIndex returns the highest main-chain index, or 0.
func (s *TradeStore) LastMainChainIndex(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last uint64
	for _, trade := range s.data {
		if trade.MainChainIndex > last {
			last = trade.MainChainIndex
		}
	}
	return last, nil
}

// LastPriceInReserve returns the most recent reserve-denominated price
// for an (agent, asset) pair, or 0 when none exists.
func (s *TradeStore) LastPriceInReserve(_ context.Context, agent, asset string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found  bool
		latest int64
		price  float64
	)
	for _, trade := range s.data {
		if trade.AgentAddress == agent && trade.Asset == asset && (!found || trade.Timestamp > latest) {
			found = true
			latest = trade.Timestamp
			price = trade.PriceInReserve
		}
	}
	return price, nil
}

// Count returns the number of stored trades.
func (s *TradeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// All returns all stored trades ordered by main-chain index.
func (s *TradeStore) All() []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, 0, len(s.data))
	for _, trade := range s.data {
		copy := *trade
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MainChainIndex < result[j].MainChainIndex
	})
	return result
}
