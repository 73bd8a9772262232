package obyte

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/byteball/perp-stats/internal/domain"
)

// stateDoc mirrors the agent's aggregate "state" state var.
type stateDoc struct {
	Asset0  string  `json:"asset0"`
	S0      float64 `json:"s0"`
	A0      float64 `json:"a0"`
	Coef    float64 `json:"coef"`
	Reserve float64 `json:"reserve"`
}

// assetDoc mirrors one "asset_<id>" state var.
type assetDoc struct {
	Supply          float64 `json:"supply"`
	A               float64 `json:"a"`
	Presale         bool    `json:"presale"`
	PresaleFinishTs int64   `json:"presale_finish_ts"`
	CreationTs      int64   `json:"creation_ts"`
}

// BuildAgentMeta assembles the transient per-pass view of one pricing
// agent from its definition parameters and raw state variables.
// Malformed asset entries are skipped; a missing aggregate state is a
// definition gap and fails the whole agent.
func BuildAgentMeta(address string, params AgentParams, vars StateVars) (*domain.AgentMeta, error) {
	raw, ok := vars["state"]
	if !ok {
		return nil, fmt.Errorf("agent %s: no state var", address)
	}

	var st stateDoc
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("agent %s: decode state: %w", address, err)
	}

	meta := &domain.AgentMeta{
		Address:        address,
		ReserveAsset:   params.ReserveAsset,
		ReservePriceAA: params.ReservePriceAA,
		PresalePeriod:  params.PresalePeriod,
		State: domain.AgentState{
			Asset0:  st.Asset0,
			S0:      st.S0,
			A0:      st.A0,
			Coef:    st.Coef,
			Reserve: st.Reserve,
		},
		Assets: make(map[string]domain.AssetState),
	}

	for key, value := range vars {
		if !strings.HasPrefix(key, "asset_") {
			continue
		}
		asset := strings.TrimPrefix(key, "asset_")

		var doc assetDoc
		if err := json.Unmarshal(value, &doc); err != nil {
			continue
		}

		meta.Assets[asset] = domain.AssetState{
			Supply:          doc.Supply,
			A:               doc.A,
			Presale:         doc.Presale,
			PresaleFinishTs: doc.PresaleFinishTs,
			CreationTs:      doc.CreationTs,
		}
	}

	return meta, nil
}
