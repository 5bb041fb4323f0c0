package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

const testBridge = "z1qxemdeddedxdrydgexxxxxxxxxxxxxxxmqgr0d"

func TestBackoffSchedule(t *testing.T) {
	m := NewManager(Config{URL: "ws://unused"}, nil)
	m.backoff = baseBackoff

	want := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
		160 * time.Second,
		300 * time.Second,
		300 * time.Second,
	}
	for i, expected := range want {
		if got := m.advanceBackoff(); got != expected {
			t.Errorf("Attempt %d: expected %v, got %v", i, expected, got)
		}
	}

	m.resetBackoff()
	if got := m.advanceBackoff(); got != baseBackoff {
		t.Errorf("Expected backoff to reset to %v, got %v", baseBackoff, got)
	}
}

func TestStopDuringBackoff(t *testing.T) {
	events := make(chan *domain.AccountBlock, 1)
	// Nothing listens on this port; every dial fails straight into backoff
	m := NewManager(Config{URL: "ws://127.0.0.1:1"}, events)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Start(context.Background())
	}()

	deadline := time.Now().Add(3 * time.Second)
	for m.State() != StateReconnecting && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if m.State() != StateReconnecting {
		t.Fatalf("Expected reconnecting state, got %s", m.State())
	}

	// Stop must interrupt the 5s backoff sleep, not wait it out
	m.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected stop to interrupt the backoff sleep")
	}

	if m.State() != StateDisconnected {
		t.Errorf("Expected disconnected state after stop, got %s", m.State())
	}
}

func notificationFrame(t *testing.T, subID string, blocks ...*domain.AccountBlock) []byte {
	t.Helper()

	var result json.RawMessage
	var err error
	if len(blocks) == 1 {
		result, err = json.Marshal(blocks[0])
	} else {
		result, err = json.Marshal(blocks)
	}
	if err != nil {
		t.Fatalf("Failed to marshal blocks: %v", err)
	}

	frame, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  methodSubscription,
		"params": map[string]any{
			"subscription": subID,
			"result":       result,
		},
	})
	if err != nil {
		t.Fatalf("Failed to marshal frame: %v", err)
	}
	return frame
}

func TestHandleFrame(t *testing.T) {
	events := make(chan *domain.AccountBlock, 16)
	m := NewManager(Config{URL: "ws://unused", BridgeAddress: testBridge}, events)
	m.setSubscriptionID("sub-1")

	ctx := context.Background()

	// Malformed frames are dropped without emitting
	m.handleFrame(ctx, []byte("{not json"))
	if len(events) != 0 {
		t.Errorf("Expected no events after malformed frame, got %d", len(events))
	}

	// Notifications for a different subscription are ignored
	m.handleFrame(ctx, notificationFrame(t, "sub-other", &domain.AccountBlock{Hash: "h0"}))
	if len(events) != 0 {
		t.Errorf("Expected no events for unknown subscription, got %d", len(events))
	}

	// Paired block is emitted right after its primary
	primary := &domain.AccountBlock{
		Hash:               "h1",
		Address:            "z1sender",
		ToAddress:          testBridge,
		PairedAccountBlock: &domain.AccountBlock{Hash: "h2", Address: testBridge},
	}
	m.handleFrame(ctx, notificationFrame(t, "sub-1", primary))

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if got := <-events; got.Hash != "h1" {
		t.Errorf("Expected primary h1 first, got %s", got.Hash)
	}
	if got := <-events; got.Hash != "h2" {
		t.Errorf("Expected paired h2 second, got %s", got.Hash)
	}

	if m.LastEventAt().IsZero() {
		t.Error("Expected last event time to be set")
	}
}

func TestHandleFrame_BatchPayload(t *testing.T) {
	events := make(chan *domain.AccountBlock, 16)
	m := NewManager(Config{URL: "ws://unused", BridgeAddress: testBridge}, events)
	m.setSubscriptionID("sub-1")

	m.handleFrame(context.Background(), notificationFrame(t, "sub-1",
		&domain.AccountBlock{Hash: "h1"},
		&domain.AccountBlock{Hash: "h2"},
	))

	if len(events) != 2 {
		t.Fatalf("Expected 2 events from batch, got %d", len(events))
	}
	if got := <-events; got.Hash != "h1" {
		t.Errorf("Expected h1 first, got %s", got.Hash)
	}
	if got := <-events; got.Hash != "h2" {
		t.Errorf("Expected h2 second, got %s", got.Hash)
	}
}

func TestEmit_SubscribeAllFiltersLocally(t *testing.T) {
	events := make(chan *domain.AccountBlock, 16)
	m := NewManager(Config{
		URL:           "ws://unused",
		BridgeAddress: testBridge,
		SubscribeAll:  true,
	}, events)
	m.setSubscriptionID("sub-1")

	ctx := context.Background()

	// Unrelated traffic on the node-wide channel is filtered out
	m.handleFrame(ctx, notificationFrame(t, "sub-1",
		&domain.AccountBlock{Hash: "h1", Address: "z1alice", ToAddress: "z1bob"},
	))
	if len(events) != 0 {
		t.Errorf("Expected unrelated block to be filtered, got %d events", len(events))
	}

	// Bridge-touching traffic passes
	m.handleFrame(ctx, notificationFrame(t, "sub-1",
		&domain.AccountBlock{Hash: "h2", Address: "z1alice", ToAddress: testBridge},
	))
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if got := <-events; got.Hash != "h2" {
		t.Errorf("Expected h2, got %s", got.Hash)
	}
}

func TestDecodeBlocks(t *testing.T) {
	blocks, err := decodeBlocks([]byte(`{"hash":"h1"}`))
	if err != nil {
		t.Fatalf("Single block decode failed: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Hash != "h1" {
		t.Errorf("Expected one block h1, got %+v", blocks)
	}

	blocks, err = decodeBlocks([]byte(`[{"hash":"h1"},{"hash":"h2"}]`))
	if err != nil {
		t.Fatalf("Batch decode failed: %v", err)
	}
	if len(blocks) != 2 {
		t.Errorf("Expected two blocks, got %d", len(blocks))
	}

	if _, err := decodeBlocks(nil); err == nil {
		t.Error("Expected error for empty payload")
	}
	if _, err := decodeBlocks([]byte(`42`)); err == nil {
		t.Error("Expected error for non-block payload")
	}
}

// TestSubscribeAndStream runs the manager against a local websocket server
// speaking the node's subscription protocol.
func TestSubscribeAndStream(t *testing.T) {
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("Failed to read subscribe request: %v", err)
			return
		}
		if req.Method != methodSubscribe {
			t.Errorf("Expected %s, got %s", methodSubscribe, req.Method)
		}
		if len(req.Params) != 2 || req.Params[0] != channelByAddress || req.Params[1] != testBridge {
			t.Errorf("Unexpected subscribe params: %v", req.Params)
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "sub-live"}
		if err := conn.WriteJSON(resp); err != nil {
			t.Errorf("Failed to write subscribe response: %v", err)
			return
		}

		frame := notificationFrame(t, "sub-live", &domain.AccountBlock{
			Hash:      "live-1",
			Address:   "z1sender",
			ToAddress: testBridge,
			Amount:    "100000000",
		})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Errorf("Failed to write notification: %v", err)
			return
		}

		// Hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	events := make(chan *domain.AccountBlock, 16)
	m := NewManager(Config{
		URL:           "ws" + strings.TrimPrefix(srv.URL, "http"),
		BridgeAddress: testBridge,
	}, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Start(ctx)
	}()

	select {
	case block := <-events:
		if block.Hash != "live-1" {
			t.Errorf("Expected live-1, got %s", block.Hash)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for streamed block")
	}

	if m.State() != StateStreaming {
		t.Errorf("Expected streaming state, got %s", m.State())
	}

	m.Stop()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for manager to stop")
	}

	if m.State() != StateDisconnected {
		t.Errorf("Expected disconnected state after stop, got %s", m.State())
	}
}
