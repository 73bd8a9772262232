// Package ingestion consumes pricing-agent response events, live and
// replayed, through one shared valuation and persistence path.
package ingestion

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/obyte"
	"github.com/byteball/perp-stats/internal/storage"
	"github.com/byteball/perp-stats/internal/valuation"
)

// Default configuration values.
const (
	DefaultBatchSize   = 50
	DefaultQueueLength = 256
)

// Dispatcher routes live and historical response events into trade
// records. Both paths share processResponse; duplicate writes are
// resolved by the store's insert-if-absent semantics.
type Dispatcher struct {
	client     obyte.Client
	subscriber obyte.ResponseSubscriber
	trades     storage.TradeStore
	batchSize  int
	queueLen   int
	logger     *log.Logger
}

// Options contains configuration for creating a Dispatcher.
type Options struct {
	Client     obyte.Client
	Subscriber obyte.ResponseSubscriber
	Trades     storage.TradeStore
	BatchSize  int
	QueueLen   int
	Logger     *log.Logger
}

// NewDispatcher creates a new ingestion dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	queueLen := opts.QueueLen
	if queueLen == 0 {
		queueLen = DefaultQueueLength
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Dispatcher{
		client:     opts.Client,
		subscriber: opts.Subscriber,
		trades:     opts.Trades,
		batchSize:  batchSize,
		queueLen:   queueLen,
		logger:     logger,
	}
}

// RunLive consumes the live subscription until the context is cancelled
// or the stream closes. Events flow through a bounded queue into a
// single consumer so valuation work never blocks the subscription.
func (d *Dispatcher) RunLive(ctx context.Context) error {
	events, err := d.subscriber.SubscribeResponses(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to responses: %w", err)
	}

	queue := make(chan *obyte.ResponseEvent, d.queueLen)

	go func() {
		defer close(queue)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case queue <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for event := range queue {
		if event.Bounced {
			continue
		}
		if err := d.processResponse(ctx, event, true); err != nil {
			d.logger.Printf("[ingest] live event %s dropped: %v", event.TriggerUnit, err)
		}
	}

	return ctx.Err()
}

// CatchUp replays every tracked agent's responses past sinceMCI. Agents
// run concurrently; each agent's batches run sequentially so ledger
// order is preserved within an agent.
func (d *Dispatcher) CatchUp(ctx context.Context, agents []string, sinceMCI uint64) {
	var wg sync.WaitGroup

	for _, agent := range agents {
		wg.Add(1)
		go func(agent string) {
			defer wg.Done()
			if err := d.catchUpAgent(ctx, agent, sinceMCI); err != nil {
				d.logger.Printf("[ingest] catch-up for %s abandoned: %v", agent, err)
			}
		}(agent)
	}

	wg.Wait()
}

// catchUpAgent replays one agent's history in fixed-size batches.
func (d *Dispatcher) catchUpAgent(ctx context.Context, agent string, sinceMCI uint64) error {
	responses, err := d.client.GetAllResponses(ctx, agent, sinceMCI)
	if err != nil {
		return fmt.Errorf("fetch responses: %w", err)
	}

	for start := 0; start < len(responses); start += d.batchSize {
		end := start + d.batchSize
		if end > len(responses) {
			end = len(responses)
		}

		for _, event := range responses[start:end] {
			if event.Bounced {
				continue
			}
			if err := d.processResponse(ctx, event, false); err != nil {
				d.logger.Printf("[ingest] historical event %s dropped: %v", event.TriggerUnit, err)
			}
		}
	}

	return nil
}

// processResponse values one agent response and persists a trade record.
// Any missing intermediate value drops the event; it is never retried.
func (d *Dispatcher) processResponse(ctx context.Context, event *obyte.ResponseEvent, isRealtime bool) error {
	price, ok := event.Price()
	if !ok {
		return fmt.Errorf("no price in response vars")
	}

	joint, err := d.client.GetJoint(ctx, event.TriggerUnit)
	if err != nil {
		return fmt.Errorf("fetch trigger unit: %w", err)
	}

	asset, ok := joint.TriggerAsset()
	if !ok {
		return fmt.Errorf("no asset in trigger payload")
	}

	meta, err := d.client.GetAssetsMetadata(ctx, []string{asset})
	if err != nil {
		return fmt.Errorf("fetch asset metadata: %w", err)
	}
	assetMeta, ok := meta[asset]
	if !ok {
		return fmt.Errorf("asset %s not registered", asset)
	}

	def, err := d.client.GetDefinition(ctx, event.AgentAddress)
	if err != nil {
		return fmt.Errorf("fetch agent definition: %w", err)
	}
	params := def.Params
	if params.ReservePriceAA == "" {
		return fmt.Errorf("agent has no reserve_price_aa")
	}

	reservePrice, err := valuation.ReservePrice(ctx, d.client, params.ReservePriceAA, params.ReserveAsset, event.MCI)
	if err != nil {
		return fmt.Errorf("resolve reserve price: %w", err)
	}

	trade := &domain.Trade{
		AgentAddress:   event.AgentAddress,
		TriggerUnit:    event.TriggerUnit,
		MainChainIndex: event.MCI,
		Asset:          asset,
		IsRealtime:     isRealtime,
		USDPrice:       reservePrice * price * math.Pow10(assetMeta.Decimals),
		PriceInReserve: price,
		Timestamp:      event.Timestamp,
	}

	if err := d.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("persist trade: %w", err)
	}
	return nil
}
