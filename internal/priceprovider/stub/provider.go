// Package stub provides a map-backed price provider for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/priceprovider"
)

// Provider serves canned price samples keyed by symbol.
type Provider struct {
	mu      sync.Mutex
	Samples map[string][]domain.PriceSample
	Err     error

	// Calls records every request for assertion in tests.
	Calls []priceprovider.Params
}

// Compile-time interface check.
var _ priceprovider.Provider = (*Provider)(nil)

// NewProvider creates an empty stub provider.
func NewProvider() *Provider {
	return &Provider{Samples: make(map[string][]domain.PriceSample)}
}

// GetMarketChartRange returns the samples registered for the symbol
// that fall inside [params.From, params.To].
func (p *Provider) GetMarketChartRange(_ context.Context, params priceprovider.Params) ([]domain.PriceSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, params)

	if p.Err != nil {
		return nil, p.Err
	}

	samples, ok := p.Samples[params.Symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %q", params.Symbol)
	}

	var result []domain.PriceSample
	for _, sample := range samples {
		if sample.Timestamp >= params.From && sample.Timestamp <= params.To {
			result = append(result, sample)
		}
	}
	return result, nil
}
