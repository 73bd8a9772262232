// Package obyte provides clients for the Obyte ledger: an HTTP JSON-RPC
// client for chain-state queries and a WebSocket client for the live
// agent-response subscription.
package obyte

import "context"

// Client exposes the chain-state queries the engine consumes. A single
// immutable client handle is constructed at startup and injected into
// every component; there is no process-wide singleton.
type Client interface {
	// GetDefinition retrieves an agent's definition by address.
	GetDefinition(ctx context.Context, address string) (*Definition, error)

	// GetStateVars retrieves all current state variables of an agent.
	GetStateVars(ctx context.Context, address string) (StateVars, error)

	// GetAAsByBaseAAs enumerates agents deployed from the given base
	// agents, with their definitions and state vars.
	GetAAsByBaseAAs(ctx context.Context, baseAAs []string) ([]*AgentDescriptor, error)

	// GetAllResponses retrieves an agent's past responses with ledger
	// index greater than sinceMCI, ordered ascending by index.
	GetAllResponses(ctx context.Context, agent string, sinceMCI uint64) ([]*ResponseEvent, error)

	// GetJoint retrieves a unit by hash.
	GetJoint(ctx context.Context, unit string) (*Joint, error)

	// GetAssetsMetadata resolves registry metadata for the given assets.
	GetAssetsMetadata(ctx context.Context, assets []string) (map[string]AssetMetadata, error)

	// GetDataFeed retrieves an oracle feed value as posted at or before
	// the given main-chain index.
	GetDataFeed(ctx context.Context, oracle, feedName string, atMCI uint64) (float64, error)

	// GetExchangeRate retrieves the current AMM exchange rate of an
	// asset against USD.
	GetExchangeRate(ctx context.Context, asset string) (float64, error)
}

// ResponseSubscriber delivers live agent-response events.
type ResponseSubscriber interface {
	// SubscribeResponses returns a channel of live response events.
	// The channel preserves arrival order and is closed when the
	// context is cancelled or the connection is permanently lost.
	SubscribeResponses(ctx context.Context) (<-chan *ResponseEvent, error)
}
