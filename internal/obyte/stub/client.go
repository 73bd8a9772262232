// Package stub provides in-memory obyte.Client and obyte.ResponseSubscriber
// implementations for testing.
package stub

import (
	"context"
	"errors"
	"fmt"

	"github.com/byteball/perp-stats/internal/obyte"
)

// ErrNotFound is returned when the stub store has no matching entry.
var ErrNotFound = errors.New("not found")

// Client implements obyte.Client from fixed in-memory data.
type Client struct {
	Definitions   map[string]*obyte.Definition
	StateVars     map[string]obyte.StateVars
	Agents        []*obyte.AgentDescriptor
	Responses     map[string][]*obyte.ResponseEvent // keyed by agent address
	Joints        map[string]*obyte.Joint
	Assets        map[string]obyte.AssetMetadata
	DataFeeds     map[string]float64 // keyed by oracle|feed_name
	ExchangeRates map[string]float64 // keyed by asset
}

// Compile-time interface check.
var _ obyte.Client = (*Client)(nil)

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		Definitions:   make(map[string]*obyte.Definition),
		StateVars:     make(map[string]obyte.StateVars),
		Responses:     make(map[string][]*obyte.ResponseEvent),
		Joints:        make(map[string]*obyte.Joint),
		Assets:        make(map[string]obyte.AssetMetadata),
		DataFeeds:     make(map[string]float64),
		ExchangeRates: make(map[string]float64),
	}
}

// GetDefinition retrieves a definition from the stub store.
func (c *Client) GetDefinition(_ context.Context, address string) (*obyte.Definition, error) {
	def, ok := c.Definitions[address]
	if !ok {
		return nil, ErrNotFound
	}
	return def, nil
}

// GetStateVars retrieves state vars from the stub store.
func (c *Client) GetStateVars(_ context.Context, address string) (obyte.StateVars, error) {
	vars, ok := c.StateVars[address]
	if !ok {
		return nil, ErrNotFound
	}
	return vars, nil
}

// GetAAsByBaseAAs returns all registered agent descriptors.
func (c *Client) GetAAsByBaseAAs(_ context.Context, _ []string) ([]*obyte.AgentDescriptor, error) {
	return c.Agents, nil
}

// GetAllResponses returns the agent's responses with MCI > sinceMCI.
func (c *Client) GetAllResponses(_ context.Context, agent string, sinceMCI uint64) ([]*obyte.ResponseEvent, error) {
	var result []*obyte.ResponseEvent
	for _, r := range c.Responses[agent] {
		if r.MCI > sinceMCI {
			result = append(result, r)
		}
	}
	return result, nil
}

// GetJoint retrieves a joint from the stub store.
func (c *Client) GetJoint(_ context.Context, unit string) (*obyte.Joint, error) {
	joint, ok := c.Joints[unit]
	if !ok {
		return nil, ErrNotFound
	}
	return joint, nil
}

// GetAssetsMetadata resolves metadata for the requested assets.
func (c *Client) GetAssetsMetadata(_ context.Context, assets []string) (map[string]obyte.AssetMetadata, error) {
	result := make(map[string]obyte.AssetMetadata)
	for _, asset := range assets {
		if meta, ok := c.Assets[asset]; ok {
			result[asset] = meta
		}
	}
	return result, nil
}

// GetDataFeed retrieves a feed value from the stub store.
func (c *Client) GetDataFeed(_ context.Context, oracle, feedName string, _ uint64) (float64, error) {
	value, ok := c.DataFeeds[feedKey(oracle, feedName)]
	if !ok {
		return 0, ErrNotFound
	}
	return value, nil
}

// GetExchangeRate retrieves an exchange rate from the stub store.
func (c *Client) GetExchangeRate(_ context.Context, asset string) (float64, error) {
	rate, ok := c.ExchangeRates[asset]
	if !ok {
		return 0, ErrNotFound
	}
	return rate, nil
}

// SetDataFeed stores a feed value.
func (c *Client) SetDataFeed(oracle, feedName string, value float64) {
	c.DataFeeds[feedKey(oracle, feedName)] = value
}

func feedKey(oracle, feedName string) string {
	return fmt.Sprintf("%s|%s", oracle, feedName)
}

// Subscriber implements obyte.ResponseSubscriber from a prepared event
// channel. Push events with Emit and close with CloseEvents.
type Subscriber struct {
	events chan *obyte.ResponseEvent
}

// Compile-time interface check.
var _ obyte.ResponseSubscriber = (*Subscriber)(nil)

// NewSubscriber creates a stub subscriber with a buffered event channel.
func NewSubscriber(buffer int) *Subscriber {
	return &Subscriber{events: make(chan *obyte.ResponseEvent, buffer)}
}

// SubscribeResponses returns the stub event channel.
func (s *Subscriber) SubscribeResponses(_ context.Context) (<-chan *obyte.ResponseEvent, error) {
	return s.events, nil
}

// Emit delivers one event to subscribers.
func (s *Subscriber) Emit(event *obyte.ResponseEvent) {
	s.events <- event
}

// CloseEvents closes the event channel.
func (s *Subscriber) CloseEvents() {
	close(s.events)
}
