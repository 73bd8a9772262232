package backfill

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/obyte"
	"github.com/byteball/perp-stats/internal/priceprovider"
	"github.com/byteball/perp-stats/internal/storage"
	"github.com/byteball/perp-stats/internal/timegrid"
)

// Orchestrator fills hourly snapshot history for every tracked pricing
// agent, resuming from the persisted watermark.
type Orchestrator struct {
	client     obyte.Client
	provider   priceprovider.Provider
	snapshots  storage.SnapshotStore
	trades     storage.TradeStore
	baseAAs    []string
	vsCurrency string
	logger     *log.Logger
	now        func() time.Time
}

// Options contains configuration for creating an Orchestrator.
type Options struct {
	Client     obyte.Client
	Provider   priceprovider.Provider
	Snapshots  storage.SnapshotStore
	Trades     storage.TradeStore
	BaseAAs    []string
	VsCurrency string
	Logger     *log.Logger
	Now        func() time.Time
}

// NewOrchestrator creates a new backfill orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	vsCurrency := opts.VsCurrency
	if vsCurrency == "" {
		vsCurrency = "usd"
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		client:     opts.Client,
		provider:   opts.Provider,
		snapshots:  opts.Snapshots,
		trades:     opts.Trades,
		baseAAs:    opts.BaseAAs,
		vsCurrency: vsCurrency,
		logger:     logger,
		now:        now,
	}
}

// Run executes one backfill pass over all tracked agents. A failing
// agent is logged and skipped; the pass continues with the rest.
func (o *Orchestrator) Run(ctx context.Context) error {
	now := o.now()

	start, err := ResolveStart(ctx, o.snapshots, now)
	if err != nil {
		return err
	}

	agents, err := o.client.GetAAsByBaseAAs(ctx, o.baseAAs)
	if err != nil {
		return fmt.Errorf("enumerate agents: %w", err)
	}

	for _, agent := range agents {
		if err := o.backfillAgent(ctx, agent, start, now.Unix()); err != nil {
			o.logger.Printf("[backfill] agent %s skipped: %v", agent.Address, err)
		}
	}

	return nil
}

// backfillAgent fills the hourly grid for one agent. A failing asset is
// logged and skipped without aborting the agent's remaining assets.
func (o *Orchestrator) backfillAgent(ctx context.Context, agent *obyte.AgentDescriptor, start, now int64) error {
	params := agent.Definition.Params
	if params.ReservePriceAA == "" {
		return fmt.Errorf("no reserve_price_aa in definition")
	}

	symbol, err := o.resolveSymbol(ctx, params.ReservePriceAA)
	if err != nil {
		return err
	}

	hours := timegrid.HoursInRange(start, now)
	if len(hours) < 2 {
		return nil
	}

	samples, err := o.provider.GetMarketChartRange(ctx, priceprovider.Params{
		Symbol:     symbol,
		VsCurrency: o.vsCurrency,
		From:       hours[0],
		To:         hours[len(hours)-1],
	})
	if err != nil {
		return fmt.Errorf("fetch %s market chart: %w", symbol, err)
	}
	if len(samples) == 0 {
		return nil
	}

	aligned, err := timegrid.AlignToGrid(samples, hours)
	if err != nil {
		return fmt.Errorf("align %s samples: %w", symbol, err)
	}

	meta, err := obyte.BuildAgentMeta(agent.Address, params, agent.StateVars)
	if err != nil {
		return err
	}

	for _, asset := range meta.AllAssets() {
		if err := o.fillAsset(ctx, agent.Address, asset, aligned); err != nil {
			o.logger.Printf("[backfill] agent %s asset %s skipped: %v", agent.Address, asset, err)
		}
	}

	return nil
}

// fillAsset persists one asset's grid-aligned history, scaling each
// reserve-price sample by the asset's last traded reserve price.
func (o *Orchestrator) fillAsset(ctx context.Context, agent, asset string, aligned []domain.PriceSample) error {
	pir, err := o.trades.LastPriceInReserve(ctx, agent, asset)
	if err != nil {
		return fmt.Errorf("last price in reserve: %w", err)
	}
	if pir == 0 {
		// No trade history yet, nothing to anchor the fill on.
		return nil
	}

	batch := make([]*domain.Snapshot, 0, len(aligned))
	for _, sample := range aligned {
		batch = append(batch, &domain.Snapshot{
			AgentAddress: agent,
			Asset:        asset,
			IsRealtime:   false,
			USDPrice:     sample.Price * pir,
			Timestamp:    sample.Timestamp,
		})
	}

	if err := o.snapshots.InsertBulk(ctx, batch); err != nil {
		return fmt.Errorf("persist %d snapshots: %w", len(batch), err)
	}
	return nil
}

// resolveSymbol extracts the market ticker from the reserve-price
// agent's oracle feed name, e.g. "BTC_USD" resolves to "BTC".
func (o *Orchestrator) resolveSymbol(ctx context.Context, reservePriceAA string) (string, error) {
	def, err := o.client.GetDefinition(ctx, reservePriceAA)
	if err != nil {
		return "", fmt.Errorf("reserve price agent %s: %w", reservePriceAA, err)
	}
	if def.Params.FeedName == "" {
		return "", fmt.Errorf("reserve price agent %s: no feed_name", reservePriceAA)
	}
	return strings.Split(def.Params.FeedName, "_")[0], nil
}
