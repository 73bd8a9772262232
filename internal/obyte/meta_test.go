package obyte

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAgentMeta(t *testing.T) {
	params := AgentParams{
		ReserveAsset:   "base",
		ReservePriceAA: "RP_AA",
		PresalePeriod:  1209600,
	}
	vars := StateVars{
		"state":         json.RawMessage(`{"asset0":"asset0hash","s0":1000,"a0":1,"coef":1.1,"reserve":500}`),
		"asset_abc":     json.RawMessage(`{"supply":10,"a":2,"presale":true,"presale_finish_ts":2000}`),
		"asset_def":     json.RawMessage(`{"supply":5,"a":1}`),
		"unrelated_key": json.RawMessage(`"ignored"`),
		"asset_mangled": json.RawMessage(`[not json`),
	}

	meta, err := BuildAgentMeta("AGENT1", params, vars)
	require.NoError(t, err)

	assert.Equal(t, "AGENT1", meta.Address)
	assert.Equal(t, "base", meta.ReserveAsset)
	assert.Equal(t, "RP_AA", meta.ReservePriceAA)
	assert.Equal(t, int64(1209600), meta.PresalePeriod)

	assert.Equal(t, "asset0hash", meta.State.Asset0)
	assert.InDelta(t, 1000.0, meta.State.S0, 0.0001)
	assert.InDelta(t, 1.1, meta.State.Coef, 0.0001)
	assert.InDelta(t, 500.0, meta.State.Reserve, 0.0001)

	// Malformed asset entries are skipped, valid ones decoded.
	require.Len(t, meta.Assets, 2)
	assert.InDelta(t, 10.0, meta.Assets["abc"].Supply, 0.0001)
	assert.True(t, meta.Assets["abc"].Presale)
	assert.Equal(t, int64(2000), meta.Assets["abc"].PresaleFinishTs)
	assert.InDelta(t, 5.0, meta.Assets["def"].Supply, 0.0001)
}

func TestBuildAgentMeta_MissingState(t *testing.T) {
	_, err := BuildAgentMeta("AGENT1", AgentParams{}, StateVars{
		"asset_abc": json.RawMessage(`{"supply":10,"a":2}`),
	})
	assert.Error(t, err)
}

func TestBuildAgentMeta_MalformedState(t *testing.T) {
	_, err := BuildAgentMeta("AGENT1", AgentParams{}, StateVars{
		"state": json.RawMessage(`"not an object"`),
	})
	assert.Error(t, err)
}
