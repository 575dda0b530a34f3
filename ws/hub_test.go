package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastJSON(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	client := &Client{ID: "c1", Send: make(chan []byte, 1)}
	hub.Register <- client
	require.NoError(t, hub.BroadcastJSON(EventNavigateBilling, map[string]string{"vno": "VN1"}))

	select {
	case raw := <-client.Send:
		var msg struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, EventNavigateBilling, msg.Type)
		assert.Equal(t, "VN1", msg.Data["vno"])
	case <-time.After(time.Second):
		t.Fatal("pesan tidak diterima")
	}
}

func TestServeWS(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", ServeWS(hub))
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	// register berjalan asinkron, kirim ulang sampai client menerima pesan
	received := make(chan Message, 1)
	go func() {
		var msg Message
		if err := conn.ReadJSON(&msg); err == nil {
			received <- msg
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		require.NoError(t, hub.BroadcastJSON(EventAntrianUpdate, "ping"))
		select {
		case msg := <-received:
			assert.Equal(t, EventAntrianUpdate, msg.Type)
			return
		case <-deadline:
			t.Fatal("client websocket tidak menerima broadcast")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestHubStoppedDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)
	cancel()

	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatal("hub tidak berhenti")
	}

	client := &Client{ID: "c1", Send: make(chan []byte, 1)}
	assert.False(t, hub.register(client))
	hub.unregister(client)
	assert.ErrorIs(t, hub.BroadcastJSON(EventAntrianUpdate, "x"), ErrHubClosed)
}

func TestHubBroadcastFullBufferDropsEvent(t *testing.T) {
	// Run tidak dijalankan sehingga buffer tidak pernah dikosongkan
	hub := NewHub(nil)
	for i := 0; i < cap(hub.Broadcast); i++ {
		require.NoError(t, hub.BroadcastJSON(EventAntrianUpdate, i))
	}
	assert.ErrorIs(t, hub.BroadcastJSON(EventNavigateBilling, "VN1"), ErrHubBusy)
}
