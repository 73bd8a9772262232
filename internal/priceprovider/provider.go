// Package priceprovider fetches historical market prices for reserve
// currencies from external sources.
package priceprovider

import (
	"context"

	"github.com/byteball/perp-stats/internal/domain"
)

// Params identifies a market chart request.
type Params struct {
	Symbol     string
	VsCurrency string
	From       int64
	To         int64
}

// Provider returns historical price samples for a symbol over a time
// range, ordered ascending by timestamp.
type Provider interface {
	GetMarketChartRange(ctx context.Context, params Params) ([]domain.PriceSample, error)
}
