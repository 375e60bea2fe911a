package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h *Hub, initial ...Message) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if c := NewClient(h, conn, initial...); c != nil {
			c.Run()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcast(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	srv := newTestServer(t, h, NewJSONMessage([]byte(`{"hello":true}`)))
	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.IsRunning())

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		typ, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, typ)
		assert.JSONEq(t, `{"hello":true}`, string(data))
	}

	h.Broadcast(NewJSONMessage([]byte(`{"speed":12.5}`)))
	h.BroadcastBinary([]byte{0x89, 'P', 'N', 'G'})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"speed":12.5}`, string(data))

		typ, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, typ)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
	}

	a.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHubStop(t *testing.T) {
	h := New("stop")
	go h.Run()

	srv := newTestServer(t, h)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.False(t, h.IsRunning())
	assert.Equal(t, 0, h.ClientCount())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure) ||
		websocket.IsUnexpectedCloseError(err), "expected close, got %v", err)

	// Registering after stop is refused instead of blocking.
	late := dial(t, srv)
	late.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = late.ReadMessage()
	assert.Error(t, err)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := New("frames")
	go h.Run()
	defer h.Stop()
	assert.Equal(t, "frames", h.Name())

	// No write pump drains this queue.
	slow := &Client{hub: h, send: make(chan Message, 1)}
	h.register <- slow
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})

	require.Eventually(t, func() bool { return h.Dropped() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, h.ClientCount())

	msg, ok := <-slow.send
	require.True(t, ok)
	assert.Equal(t, BinaryMessage, msg.Type)
	_, ok = <-slow.send
	assert.False(t, ok, "queue is closed on eviction")
}
