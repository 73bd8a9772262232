package obyte

import (
	"encoding/json"
	"fmt"
)

// AgentParams are the immutable definition parameters an autonomous
// agent was deployed with. Only the parameters the engine consumes are
// decoded; everything else is ignored.
type AgentParams struct {
	ReserveAsset   string `json:"reserve_asset"`
	ReservePriceAA string `json:"reserve_price_aa"`
	PresalePeriod  int64  `json:"presale_period"`

	// Reserve-price agent parameters. An oswap_aa selects the AMM
	// exchange-rate path; oracle/feed_name/decimals select the
	// data-feed path.
	OswapAA  string `json:"oswap_aa"`
	Oracle   string `json:"oracle"`
	FeedName string `json:"feed_name"`
	Decimals int    `json:"decimals"`
}

// Definition is an on-chain agent definition: a ["autonomous agent", body]
// tuple on the wire.
type Definition struct {
	Type   string
	Params AgentParams
}

// UnmarshalJSON decodes the [type, {params}] wire tuple.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("decode definition tuple: %w", err)
	}
	if len(tuple) < 2 {
		return fmt.Errorf("definition tuple has %d elements, want 2", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &d.Type); err != nil {
		return fmt.Errorf("decode definition type: %w", err)
	}

	var body struct {
		Params AgentParams `json:"params"`
	}
	if err := json.Unmarshal(tuple[1], &body); err != nil {
		return fmt.Errorf("decode definition body: %w", err)
	}
	d.Params = body.Params
	return nil
}

// StateVars holds an agent's raw state variables keyed by name.
type StateVars map[string]json.RawMessage

// AgentDescriptor is one agent discovered through base-agent linkage,
// with its definition and current state.
type AgentDescriptor struct {
	Address    string     `json:"address"`
	Definition Definition `json:"definition"`
	StateVars  StateVars  `json:"stateVars"`
}

// AssetMetadata describes a registered asset.
type AssetMetadata struct {
	Decimals int    `json:"decimals"`
	Name     string `json:"name"`
}

// ResponseBody is the response part of an agent response event.
type ResponseBody struct {
	ResponseVars map[string]float64 `json:"responseVars"`
}

// ResponseEvent is one pricing-agent response, either delivered live by
// the hub subscription or replayed from history.
type ResponseEvent struct {
	MCI          uint64       `json:"mci"`
	AgentAddress string       `json:"aa_address"`
	TriggerUnit  string       `json:"trigger_unit"`
	Bounced      bool         `json:"bounced"`
	Timestamp    int64        `json:"timestamp"`
	Response     ResponseBody `json:"response"`
}

// Price returns the price response var, with ok=false when the response
// carries none.
func (e *ResponseEvent) Price() (float64, bool) {
	if e.Response.ResponseVars == nil {
		return 0, false
	}
	p, ok := e.Response.ResponseVars["price"]
	return p, ok
}

// Message is one application message inside a unit.
type Message struct {
	App     string          `json:"app"`
	Payload json.RawMessage `json:"payload"`
}

// Unit is the relevant subset of a ledger unit.
type Unit struct {
	Unit     string    `json:"unit"`
	Messages []Message `json:"messages"`
}

// Joint wraps a unit as returned by joint lookup.
type Joint struct {
	Unit Unit `json:"unit"`
}

// TriggerAsset extracts the target asset from the data payload of the
// triggering request. ok=false when the unit has no data message or the
// payload names no asset.
func (j *Joint) TriggerAsset() (string, bool) {
	for _, msg := range j.Unit.Messages {
		if msg.App != "data" {
			continue
		}
		var payload struct {
			Asset string `json:"asset"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return "", false
		}
		if payload.Asset == "" {
			return "", false
		}
		return payload.Asset, true
	}
	return "", false
}
