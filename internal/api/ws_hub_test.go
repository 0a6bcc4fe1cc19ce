package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/equiblock/engine/internal/api"
)

func newHubServer(t *testing.T) (*api.WSHub, *httptest.Server) {
	t.Helper()
	hub := api.NewWSHub()
	go hub.Run()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	// Give the hub's register channel a beat before broadcasting.
	time.Sleep(50 * time.Millisecond)
	return conn
}

func TestWSHub_BroadcastReachesClients(t *testing.T) {
	hub, srv := newHubServer(t)
	conn := dialWS(t, srv)

	hub.Broadcast(api.WSMessage{Type: "price_update", Price: "100"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg api.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "price_update" || msg.Price != "100" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestWSHub_SurvivesDroppedClient(t *testing.T) {
	hub, srv := newHubServer(t)
	dropped := dialWS(t, srv)
	live := dialWS(t, srv)

	dropped.Close()

	// Broadcasting past the closed connection must not wedge the hub;
	// the live client keeps receiving.
	hub.Broadcast(api.WSMessage{Type: "mint", Account: "alice", Amount: "0.1"})

	live.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg api.WSMessage
	if err := live.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "mint" || msg.Account != "alice" {
		t.Errorf("unexpected message: %+v", msg)
	}
}
