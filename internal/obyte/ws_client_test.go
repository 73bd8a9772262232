package obyte

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestWSClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		// Keep connection open
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_DeliversResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		// Read subscribe request
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var frame []json.RawMessage
		if err := json.Unmarshal(msg, &frame); err != nil || len(frame) < 2 {
			t.Errorf("unexpected subscribe frame: %s", msg)
			return
		}

		// An unrelated frame must be ignored by the client.
		c.WriteJSON([]interface{}{"justsaying", map[string]interface{}{"subject": "version", "body": "1.0"}})

		notif := []interface{}{
			"justsaying",
			map[string]interface{}{
				"subject": "aa_response",
				"body": map[string]interface{}{
					"mci":          100,
					"aa_address":   "AGENT1",
					"trigger_unit": "unit1",
					"bounced":      false,
					"timestamp":    1700000000,
					"response":     map[string]interface{}{"responseVars": map[string]float64{"price": 1.5}},
				},
			},
		}
		if err := c.WriteJSON(notif); err != nil {
			t.Errorf("write notification: %v", err)
			return
		}

		// Keep connection open
		for {
			_, _, err := c.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeResponses(context.Background())
	if err != nil {
		t.Fatalf("SubscribeResponses: %v", err)
	}

	select {
	case event := <-ch:
		if event.AgentAddress != "AGENT1" {
			t.Errorf("expected AGENT1, got %s", event.AgentAddress)
		}
		if event.MCI != 100 {
			t.Errorf("expected mci 100, got %d", event.MCI)
		}
		if price, ok := event.Price(); !ok || price != 1.5 {
			t.Errorf("expected price 1.5, got %v (ok=%v)", price, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestWSClient_ReconnectsAfterFailedAttempt(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch attempts.Add(1) {
		case 1:
			// First connection drops right after the subscribe.
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				t.Errorf("upgrade: %v", err)
				return
			}
			conn.ReadMessage()
			conn.Close()
		case 2:
			// First reconnect attempt is refused outright.
			w.WriteHeader(http.StatusInternalServerError)
		default:
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				t.Errorf("upgrade: %v", err)
				return
			}
			defer conn.Close()

			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}

			notif := []interface{}{
				"justsaying",
				map[string]interface{}{
					"subject": "aa_response",
					"body":    map[string]interface{}{"mci": 7, "aa_address": "AGENT1"},
				},
			}
			if err := conn.WriteJSON(notif); err != nil {
				return
			}

			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	config := DefaultWSConfig()
	config.ReconnectDelay = 10 * time.Millisecond

	client, err := NewWSClient(context.Background(), wsURL, &config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeResponses(context.Background())
	if err != nil {
		t.Fatalf("SubscribeResponses: %v", err)
	}

	// The failed reconnect attempt must be retried, not abandoned.
	select {
	case event := <-ch:
		if event.MCI != 7 {
			t.Errorf("expected mci 7, got %d", event.MCI)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event after reconnect")
	}

	if n := attempts.Load(); n < 3 {
		t.Errorf("expected at least 3 connection attempts, got %d", n)
	}
}

func TestWSClient_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	client.Close()

	if _, err := client.SubscribeResponses(context.Background()); err == nil {
		t.Error("expected error subscribing after close")
	}
}
