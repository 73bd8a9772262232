package obyte

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0 against a hub
// that exposes the light-client API.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Obyte RPC client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetDefinition retrieves an agent's definition by address.
func (c *HTTPClient) GetDefinition(ctx context.Context, address string) (*Definition, error) {
	var def Definition
	if err := c.call(ctx, "getDefinition", []interface{}{address}, &def); err != nil {
		return nil, fmt.Errorf("get definition for %s: %w", address, err)
	}
	return &def, nil
}

// GetStateVars retrieves all current state variables of an agent.
func (c *HTTPClient) GetStateVars(ctx context.Context, address string) (StateVars, error) {
	var vars StateVars
	if err := c.call(ctx, "getAaStateVars", []interface{}{map[string]string{"address": address}}, &vars); err != nil {
		return nil, fmt.Errorf("get state vars for %s: %w", address, err)
	}
	return vars, nil
}

// GetAAsByBaseAAs enumerates agents deployed from the given base agents.
func (c *HTTPClient) GetAAsByBaseAAs(ctx context.Context, baseAAs []string) ([]*AgentDescriptor, error) {
	var agents []*AgentDescriptor
	if err := c.call(ctx, "getAasByBaseAas", []interface{}{baseAAs}, &agents); err != nil {
		return nil, fmt.Errorf("get agents by base agents: %w", err)
	}
	return agents, nil
}

// GetAllResponses retrieves an agent's past responses after sinceMCI,
// ordered ascending by main-chain index.
func (c *HTTPClient) GetAllResponses(ctx context.Context, agent string, sinceMCI uint64) ([]*ResponseEvent, error) {
	params := []interface{}{map[string]interface{}{
		"aa":      agent,
		"min_mci": sinceMCI,
		"order":   "ASC",
	}}

	var responses []*ResponseEvent
	if err := c.call(ctx, "getAaResponses", params, &responses); err != nil {
		return nil, fmt.Errorf("get responses for %s: %w", agent, err)
	}
	return responses, nil
}

// GetJoint retrieves a unit by hash.
func (c *HTTPClient) GetJoint(ctx context.Context, unit string) (*Joint, error) {
	var result struct {
		Joint Joint `json:"joint"`
	}
	if err := c.call(ctx, "getJoint", []interface{}{unit}, &result); err != nil {
		return nil, fmt.Errorf("get joint %s: %w", unit, err)
	}
	return &result.Joint, nil
}

// GetAssetsMetadata resolves registry metadata for the given assets.
func (c *HTTPClient) GetAssetsMetadata(ctx context.Context, assets []string) (map[string]AssetMetadata, error) {
	var meta map[string]AssetMetadata
	if err := c.call(ctx, "getAssetsMetadata", []interface{}{assets}, &meta); err != nil {
		return nil, fmt.Errorf("get assets metadata: %w", err)
	}
	return meta, nil
}

// GetDataFeed retrieves an oracle feed value at or before the given
// main-chain index. An atMCI of 0 returns the latest value.
func (c *HTTPClient) GetDataFeed(ctx context.Context, oracle, feedName string, atMCI uint64) (float64, error) {
	body := map[string]interface{}{
		"oracles":   []string{oracle},
		"feed_name": feedName,
	}
	if atMCI > 0 {
		body["max_mci"] = atMCI
	}
	params := []interface{}{body}

	var value float64
	if err := c.call(ctx, "getDataFeed", params, &value); err != nil {
		return 0, fmt.Errorf("get data feed %s from %s: %w", feedName, oracle, err)
	}
	return value, nil
}

// GetExchangeRate retrieves the current AMM exchange rate of an asset
// against USD.
func (c *HTTPClient) GetExchangeRate(ctx context.Context, asset string) (float64, error) {
	var rate float64
	if err := c.call(ctx, "getExchangeRate", []interface{}{asset}, &rate); err != nil {
		return 0, fmt.Errorf("get exchange rate for %s: %w", asset, err)
	}
	return rate, nil
}
