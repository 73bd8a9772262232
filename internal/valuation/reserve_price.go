package valuation

import (
	"context"
	"fmt"
	"math"

	"github.com/byteball/perp-stats/internal/obyte"
)

// ReservePrice resolves the USD price of an agent's reserve asset from
// its nested reserve-price agent. A definition exposing an oswap_aa
// param selects the AMM exchange-rate path; otherwise the oracle feed
// as of the given main-chain index is used, normalized by the feed's
// decimals. One selection rule, shared by every ingestion path.
func ReservePrice(ctx context.Context, client obyte.Client, reservePriceAA, reserveAsset string, atMCI uint64) (float64, error) {
	def, err := client.GetDefinition(ctx, reservePriceAA)
	if err != nil {
		return 0, fmt.Errorf("reserve price agent %s: %w", reservePriceAA, err)
	}

	if def.Params.OswapAA != "" {
		rate, err := client.GetExchangeRate(ctx, reserveAsset)
		if err != nil {
			return 0, fmt.Errorf("exchange rate for %s: %w", reserveAsset, err)
		}
		return rate, nil
	}

	if def.Params.Oracle == "" || def.Params.FeedName == "" {
		return 0, fmt.Errorf("reserve price agent %s: neither oswap_aa nor oracle feed configured", reservePriceAA)
	}

	raw, err := client.GetDataFeed(ctx, def.Params.Oracle, def.Params.FeedName, atMCI)
	if err != nil {
		return 0, fmt.Errorf("data feed %s: %w", def.Params.FeedName, err)
	}
	return raw / math.Pow10(def.Params.Decimals), nil
}
