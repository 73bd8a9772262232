package stats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/obyte"
	"github.com/byteball/perp-stats/internal/obyte/stub"
	"github.com/byteball/perp-stats/internal/storage/memory"
)

const (
	testAgent     = "AGENT1"
	testReserveAA = "RESERVE_PRICE_AA"
	testAsset0    = "asset0hash"
)

func newTestClient() *stub.Client {
	client := stub.NewClient()

	client.Agents = []*obyte.AgentDescriptor{{
		Address: testAgent,
		Definition: obyte.Definition{
			Type: "autonomous agent",
			Params: obyte.AgentParams{
				ReserveAsset:   "base",
				ReservePriceAA: testReserveAA,
			},
		},
		StateVars: obyte.StateVars{
			"state": json.RawMessage(`{"asset0":"` + testAsset0 + `","s0":1000,"a0":1,"coef":1,"reserve":500}`),
		},
	}}
	client.Definitions[testReserveAA] = &obyte.Definition{
		Type:   "autonomous agent",
		Params: obyte.AgentParams{Oracle: "ORACLE", FeedName: "BTC_USD"},
	}
	client.SetDataFeed("ORACLE", "BTC_USD", 2.0)

	return client
}

func TestJob_PersistsRealtimeSnapshots(t *testing.T) {
	client := newTestClient()
	snapshots := memory.NewSnapshotStore()

	now := time.Unix(36000, 0)
	job := NewJob(Options{
		Client:    client,
		Snapshots: snapshots,
		BaseAAs:   []string{"BASE_AA"},
		Now:       func() time.Time { return now },
	})

	require.NoError(t, job.Run(context.Background()))

	all := snapshots.All()
	require.Len(t, all, 2)

	// Reserve entry carries the reserve asset's own USD price.
	assert.Equal(t, domain.ReserveAssetKey, all[1].Asset)
	assert.InDelta(t, 2.0, all[1].USDPrice, 0.0001)

	// asset0: pir = 1*1*1000/500 = 2, usd = 1000*2*2.0 = 4000.
	assert.Equal(t, testAsset0, all[0].Asset)
	assert.InDelta(t, 4000.0, all[0].USDPrice, 0.0001)

	for _, snap := range all {
		assert.True(t, snap.IsRealtime)
		assert.Equal(t, now.Unix(), snap.Timestamp)
		assert.Equal(t, testAgent, snap.AgentAddress)
	}
}

func TestJob_AgentWithoutReservePriceSkipped(t *testing.T) {
	client := newTestClient()
	client.Agents[0].Definition.Params.ReservePriceAA = ""
	snapshots := memory.NewSnapshotStore()

	job := NewJob(Options{Client: client, Snapshots: snapshots, BaseAAs: []string{"BASE_AA"}})

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, snapshots.Count())
}

func TestJob_FailingAgentDoesNotAbortOthers(t *testing.T) {
	client := newTestClient()
	snapshots := memory.NewSnapshotStore()

	// Prepend an agent whose reserve-price definition is missing.
	broken := &obyte.AgentDescriptor{
		Address: "BROKEN_AGENT",
		Definition: obyte.Definition{
			Type:   "autonomous agent",
			Params: obyte.AgentParams{ReserveAsset: "base", ReservePriceAA: "MISSING_AA"},
		},
		StateVars: obyte.StateVars{
			"state": json.RawMessage(`{"asset0":"other","s0":1,"a0":1,"coef":1,"reserve":1}`),
		},
	}
	client.Agents = append([]*obyte.AgentDescriptor{broken}, client.Agents...)

	job := NewJob(Options{Client: client, Snapshots: snapshots, BaseAAs: []string{"BASE_AA"}})

	require.NoError(t, job.Run(context.Background()))

	// Only the healthy agent produced rows.
	for _, snap := range snapshots.All() {
		assert.Equal(t, testAgent, snap.AgentAddress)
	}
	assert.Equal(t, 2, snapshots.Count())
}
