// Package stats produces realtime valuation snapshots of every tracked
// pricing agent on a fixed schedule.
package stats

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/obyte"
	"github.com/byteball/perp-stats/internal/storage"
	"github.com/byteball/perp-stats/internal/valuation"
)

// Job values all assets of all tracked agents and persists realtime
// snapshot records carrying the wall-clock timestamp.
type Job struct {
	client    obyte.Client
	snapshots storage.SnapshotStore
	baseAAs   []string
	logger    *log.Logger
	now       func() time.Time
}

// Options contains configuration for creating a Job.
type Options struct {
	Client    obyte.Client
	Snapshots storage.SnapshotStore
	BaseAAs   []string
	Logger    *log.Logger
	Now       func() time.Time
}

// NewJob creates a new realtime stats job.
func NewJob(opts Options) *Job {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Job{
		client:    opts.Client,
		snapshots: opts.Snapshots,
		baseAAs:   opts.BaseAAs,
		logger:    logger,
		now:       now,
	}
}

// Run executes one valuation pass. A failing agent is logged and
// skipped; the pass continues with the rest.
func (j *Job) Run(ctx context.Context) error {
	agents, err := j.client.GetAAsByBaseAAs(ctx, j.baseAAs)
	if err != nil {
		return fmt.Errorf("enumerate agents: %w", err)
	}

	now := j.now().Unix()

	for _, agent := range agents {
		if err := j.snapshotAgent(ctx, agent, now); err != nil {
			j.logger.Printf("[stats] agent %s skipped: %v", agent.Address, err)
		}
	}

	return nil
}

// snapshotAgent values one agent and persists a realtime snapshot per
// asset, including the reserve entry.
func (j *Job) snapshotAgent(ctx context.Context, agent *obyte.AgentDescriptor, now int64) error {
	params := agent.Definition.Params
	if params.ReservePriceAA == "" {
		return fmt.Errorf("no reserve_price_aa in definition")
	}

	meta, err := obyte.BuildAgentMeta(agent.Address, params, agent.StateVars)
	if err != nil {
		return err
	}

	reservePrice, err := valuation.ReservePrice(ctx, j.client, params.ReservePriceAA, params.ReserveAsset, 0)
	if err != nil {
		return err
	}

	batch := make([]*domain.Snapshot, 0, len(meta.Assets)+2)
	for _, price := range valuation.ValueAgent(meta, reservePrice, now) {
		batch = append(batch, &domain.Snapshot{
			AgentAddress: agent.Address,
			Asset:        price.Asset,
			IsRealtime:   true,
			USDPrice:     price.USDPrice,
			Timestamp:    now,
		})
	}

	if err := j.snapshots.InsertBulk(ctx, batch); err != nil {
		return fmt.Errorf("persist %d realtime snapshots: %w", len(batch), err)
	}
	return nil
}
