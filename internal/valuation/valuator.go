// Package valuation computes reserve-denominated and USD prices of
// synthetic assets from bonding-curve state, and resolves the USD price
// of an agent's reserve asset.
package valuation

import (
	"math"

	"github.com/byteball/perp-stats/internal/domain"
)

// PriceInReserve returns the reserve-denominated price of one asset on
// the bonding curve: coef² · a · supply / reserve. An empty reserve is a
// degenerate case with price 0, not an error.
func PriceInReserve(coef, a, supply, reserve float64) float64 {
	if reserve == 0 {
		return 0
	}
	return coef * coef * a * supply / reserve
}

// RoundUSD rounds to the fixed 2-decimal USD reporting precision.
// Applied at the point of reporting only, never before aggregation.
func RoundUSD(v float64) float64 {
	return math.Round(v*100) / 100
}

// ValueAgent prices every asset of one pricing agent: the reserve entry
// first, then asset0, then each synthetic asset with a live supply.
// Assets whose presale ended abnormally are excluded entirely.
func ValueAgent(meta *domain.AgentMeta, reservePriceUSD float64, now int64) []domain.AssetPrice {
	prices := []domain.AssetPrice{{
		Asset:    domain.ReserveAssetKey,
		USDPrice: RoundUSD(reservePriceUSD),
	}}

	for _, asset := range meta.AssetList(now) {
		supply := meta.State.S0
		a := meta.State.A0
		if asset != meta.State.Asset0 {
			st := meta.Assets[asset]
			supply = st.Supply
			a = st.A
		}

		pir := PriceInReserve(meta.State.Coef, a, supply, meta.State.Reserve)
		prices = append(prices, domain.AssetPrice{
			Asset:          asset,
			PriceInReserve: pir,
			USDPrice:       RoundUSD(supply * pir * reservePriceUSD),
		})
	}

	return prices
}
