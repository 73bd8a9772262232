package domain

import "sort"

// AgentState holds the live bonding-curve state shared by all assets
// of one pricing agent.
type AgentState struct {
	Asset0  string  // distinguished base asset
	S0      float64 // asset0 supply
	A0      float64 // asset0 curve parameter
	Coef    float64 // per-agent curve coefficient
	Reserve float64 // current reserve balance
}

// AssetState holds per-asset curve parameters from agent state vars.
type AssetState struct {
	Supply          float64
	A               float64 // curve parameter
	Presale         bool    // still flagged as in presale phase
	PresaleFinishTs int64   // unix seconds; 0 when not set
	CreationTs      int64   // unix seconds; 0 when not set
}

// BrokenPresale reports whether the asset's presale window elapsed without
// completing: the presale flag is still set past the finish timestamp
// (or past creation + presalePeriod when no finish timestamp exists).
func (a AssetState) BrokenPresale(now, presalePeriod int64) bool {
	if !a.Presale {
		return false
	}
	finish := a.PresaleFinishTs
	if finish == 0 && a.CreationTs > 0 {
		finish = a.CreationTs + presalePeriod
	}
	return finish > 0 && now > finish
}

// AgentMeta aggregates one pricing agent's immutable definition parameters
// and its live state variables. Owned transiently per reconciliation pass;
// never persisted as a whole.
type AgentMeta struct {
	Address        string
	ReserveAsset   string
	ReservePriceAA string // nested reserve-price agent address
	PresalePeriod  int64  // seconds
	State          AgentState
	Assets         map[string]AssetState // keyed by asset id, excludes asset0
}

// AssetList returns asset0 followed by every non-broken asset key with
// a non-zero supply, the order in which valuation enumerates assets.
// The tail is sorted so enumeration is deterministic.
func (m *AgentMeta) AssetList(now int64) []string {
	assets := []string{m.State.Asset0}
	var rest []string
	for asset, st := range m.Assets {
		if st.BrokenPresale(now, m.PresalePeriod) {
			continue
		}
		if st.Supply == 0 {
			continue
		}
		rest = append(rest, asset)
	}
	sort.Strings(rest)
	return append(assets, rest...)
}

// AllAssets returns asset0 followed by every asset key present in state,
// without the valuation filters. Backfill anchors on trade history, so an
// asset that is currently zero-supply or broken still gets its rows.
func (m *AgentMeta) AllAssets() []string {
	assets := []string{m.State.Asset0}
	rest := make([]string, 0, len(m.Assets))
	for asset := range m.Assets {
		rest = append(rest, asset)
	}
	sort.Strings(rest)
	return append(assets, rest...)
}

// AssetPrice is one valuation output of the bonding-curve valuator.
type AssetPrice struct {
	Asset          string
	PriceInReserve float64
	USDPrice       float64
}
