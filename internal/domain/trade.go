package domain

// Trade represents a valuation derived from an actual pricing-agent
// response event. Corresponds to trades_history table in PostgreSQL.
// Uniqueness key: (agent_address, asset, timestamp).
type Trade struct {
	AgentAddress   string  // pricing agent address
	TriggerUnit    string  // unit that triggered the agent response
	MainChainIndex uint64  // ledger ordering index; trade-ingestion watermark
	Asset          string  // asset priced by the response
	IsRealtime     bool    // true when delivered by the live subscription
	USDPrice       float64 // USD valuation
	PriceInReserve float64 // price in reserve-asset units, from the response
	Timestamp      int64   // event's native timestamp (unix seconds)
	CreatedAt      int64   // record creation timestamp (unix seconds)
}
