package obyte

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// EventBuffer is the capacity of the delivered event channel.
	EventBuffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		EventBuffer:       1000,
	}
}

// WSClient subscribes to live agent-response events on an Obyte hub
// using gorilla/websocket. Hub frames are [type, content] tuples; agent
// responses arrive as justsaying frames with subject "aa_response".
type WSClient struct {
	endpoint string
	config   WSConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	events chan *ResponseEvent

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// Compile-time interface check.
var _ ResponseSubscriber = (*WSClient)(nil)

// NewWSClient creates a new hub WebSocket client and connects.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		events:   make(chan *ResponseEvent, cfg.EventBuffer),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection and subscribes to
// agent-response events.
func (c *WSClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	subscribe := []interface{}{
		"request",
		map[string]interface{}{"command": "subscribe", "params": map[string]interface{}{"subjects": []string{"aa_response"}}},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		return fmt.Errorf("write subscribe: %w", err)
	}

	c.conn = conn
	return nil
}

// SubscribeResponses returns the live response-event channel. Events are
// delivered in arrival order; the channel is closed on Close or when the
// context is cancelled.
func (c *WSClient) SubscribeResponses(ctx context.Context) (<-chan *ResponseEvent, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	return c.events, nil
}

// Close closes the WebSocket connection and the event channel.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.events)
	return nil
}

// readLoop reads hub frames and delivers agent-response events.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// handleMessage decodes one hub frame and delivers aa_response events.
// Unknown frames are ignored.
func (c *WSClient) handleMessage(message []byte) {
	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil || len(frame) < 2 {
		return
	}

	var frameType string
	if err := json.Unmarshal(frame[0], &frameType); err != nil || frameType != "justsaying" {
		return
	}

	var saying struct {
		Subject string          `json:"subject"`
		Body    json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(frame[1], &saying); err != nil || saying.Subject != "aa_response" {
		return
	}

	var event ResponseEvent
	if err := json.Unmarshal(saying.Body, &event); err != nil {
		return
	}

	// Blocking send preserves arrival order; the buffer absorbs bursts.
	select {
	case c.events <- &event:
	case <-c.done:
	}
}

// reconnect keeps attempting to reconnect and resubscribe, backing off
// between attempts, until it succeeds or the client is closed.
func (c *WSClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	for !c.closed.Load() {
		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		// connect resubscribes as part of the handshake.
		err := c.connect(ctx)
		cancel()
		if err == nil {
			return
		}

		delay = delay * 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			if conn != nil {
				conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}
