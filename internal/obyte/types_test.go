package obyte

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinition_UnmarshalJSON(t *testing.T) {
	raw := `["autonomous agent",{"params":{"reserve_asset":"base","reserve_price_aa":"RP_AA","presale_period":1209600,"oracle":"ORACLE","feed_name":"BTC_USD","decimals":8}}]`

	var def Definition
	require.NoError(t, json.Unmarshal([]byte(raw), &def))

	assert.Equal(t, "autonomous agent", def.Type)
	assert.Equal(t, "base", def.Params.ReserveAsset)
	assert.Equal(t, "RP_AA", def.Params.ReservePriceAA)
	assert.Equal(t, int64(1209600), def.Params.PresalePeriod)
	assert.Equal(t, "ORACLE", def.Params.Oracle)
	assert.Equal(t, "BTC_USD", def.Params.FeedName)
	assert.Equal(t, 8, def.Params.Decimals)
}

func TestDefinition_UnmarshalInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not a tuple", `{"params":{}}`},
		{"too short", `["autonomous agent"]`},
		{"bad type", `[42,{"params":{}}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var def Definition
			assert.Error(t, json.Unmarshal([]byte(tt.raw), &def))
		})
	}
}

func TestResponseEvent_Price(t *testing.T) {
	event := &ResponseEvent{
		Response: ResponseBody{ResponseVars: map[string]float64{"price": 1.5}},
	}
	price, ok := event.Price()
	assert.True(t, ok)
	assert.InDelta(t, 1.5, price, 0.0001)

	event.Response.ResponseVars = map[string]float64{"other": 1}
	_, ok = event.Price()
	assert.False(t, ok)

	event.Response.ResponseVars = nil
	_, ok = event.Price()
	assert.False(t, ok)
}

func TestJoint_TriggerAsset(t *testing.T) {
	joint := &Joint{Unit: Unit{
		Unit: "UNIT1",
		Messages: []Message{
			{App: "payment", Payload: json.RawMessage(`{}`)},
			{App: "data", Payload: json.RawMessage(`{"asset":"assetXYZ"}`)},
		},
	}}

	asset, ok := joint.TriggerAsset()
	assert.True(t, ok)
	assert.Equal(t, "assetXYZ", asset)
}

func TestJoint_TriggerAssetMissing(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
	}{
		{"no messages", nil},
		{"no data message", []Message{{App: "payment", Payload: json.RawMessage(`{}`)}}},
		{"data without asset", []Message{{App: "data", Payload: json.RawMessage(`{"other":"x"}`)}}},
		{"malformed payload", []Message{{App: "data", Payload: json.RawMessage(`[1,2]`)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joint := &Joint{Unit: Unit{Messages: tt.messages}}
			_, ok := joint.TriggerAsset()
			assert.False(t, ok)
		})
	}
}
