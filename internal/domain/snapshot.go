package domain

// Snapshot represents one valuation point for a synthetic or reserve asset.
// Corresponds to snapshot_history table in PostgreSQL.
// Uniqueness key: (agent_address, asset, timestamp).
type Snapshot struct {
	AgentAddress string  // pricing agent address
	Asset        string  // asset identifier, or ReserveAssetKey for the reserve entry
	IsRealtime   bool    // true for live valuations, false for backfilled hours
	USDPrice     float64 // USD valuation
	Timestamp    int64   // Unix seconds; hour-aligned for backfilled rows
	CreatedAt    int64   // record creation timestamp (unix seconds)
}

// ReserveAssetKey is the asset identifier under which the reserve asset's
// own USD price is recorded alongside the synthetic assets.
const ReserveAssetKey = "reserve"
