package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(hub)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestHubAcknowledgesConnection(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	ack := readEnvelope(t, conn)
	assert.Equal(t, "connected", ack.Type)
	assert.NotEmpty(t, ack.Timestamp)

	_, err := time.Parse(time.RFC3339, ack.Timestamp)
	assert.NoError(t, err)
}

func TestHubAnswersPingWithPong(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	readEnvelope(t, conn) // connected ack

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	pong := readEnvelope(t, conn)
	assert.Equal(t, "pong", pong.Type)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()

	first, cleanupFirst := dialHub(t, hub)
	defer cleanupFirst()
	readEnvelope(t, first)

	server := httptest.NewServer(hub)
	defer server.Close()
	second, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer second.Close()
	readEnvelope(t, second)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("strategies_updated", []map[string]interface{}{{"id": 1}})

	for _, conn := range []*websocket.Conn{first, second} {
		env := readEnvelope(t, conn)
		assert.Equal(t, "strategies_updated", env.Type)
		require.NotNil(t, env.Data)
	}
}

// registeredClient returns the hub's single registered client, waiting for
// the handshake to land first.
func registeredClient(t *testing.T, hub *Hub) *client {
	t.Helper()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for _, c := range hub.clients {
		return c
	}
	t.Fatal("no client registered")
	return nil
}

func TestHubHeartbeatPingsIdleClients(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	readEnvelope(t, conn)

	pings := make(chan struct{}, 1)
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		select {
		case pings <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	c := registeredClient(t, hub)

	// An idle tab sends no application messages at all; only the server's
	// ping and the answering pong keep it marked alive.
	c.mu.Lock()
	c.lastSeen = time.Now().Add(-45 * time.Second)
	c.mu.Unlock()

	hub.heartbeat()

	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a server ping")
	}

	require.Eventually(t, func() bool { return c.idleSince() < 45*time.Second }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHubHeartbeatEvictsSilentClients(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	readEnvelope(t, conn)

	// Swallow pings so the peer looks dead.
	conn.SetPingHandler(func(string) error { return nil })
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	c := registeredClient(t, hub)

	c.mu.Lock()
	c.lastSeen = time.Now().Add(-(StaleAfter + time.Second))
	c.mu.Unlock()

	hub.heartbeat()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	readEnvelope(t, conn)

	require.Equal(t, 1, hub.ClientCount())
	conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	// Broadcasting into an empty hub is a no-op.
	hub.Broadcast("users_updated", nil)
}

func TestHubShutdownSendsNormalClosure(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	readEnvelope(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	hub.Shutdown(ctx)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	assert.Equal(t, 0, hub.ClientCount())
}
