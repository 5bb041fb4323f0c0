package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
	"github.com/znnlabs/bridgewatch/internal/metrics"
)

// Reconnect backoff bounds. The delay doubles per consecutive failure and
// resets to base on a successful subscribe.
const (
	baseBackoff = 5 * time.Second
	maxBackoff  = 300 * time.Second

	handshakeTimeout = 15 * time.Second
	writeTimeout     = 10 * time.Second
)

// State is the connection state machine position.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateStreaming
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Config holds stream connection settings.
type Config struct {
	URL           string
	BridgeAddress string
	// SubscribeAll uses the node-wide account block channel and filters
	// for bridge activity locally.
	SubscribeAll bool
}

// Manager owns the long-lived subscription connection. It is the sole
// writer of connection and subscription state; Start runs as one goroutine
// and hands decoded account blocks to the ingest queue in arrival order.
type Manager struct {
	cfg    Config
	events chan<- *domain.AccountBlock
	log    *slog.Logger
	dialer *websocket.Dialer

	mu    sync.Mutex
	conn  *websocket.Conn
	subID string

	state     atomic.Int32
	stopped   atomic.Bool
	stop      chan struct{}
	stopOnce  sync.Once
	nextID    atomic.Uint64
	lastEvent atomic.Int64

	// backoff is only touched from the Start loop
	backoff time.Duration
}

// NewManager creates a connection manager emitting into the given queue.
func NewManager(cfg Config, events chan<- *domain.AccountBlock) *Manager {
	return &Manager{
		cfg:    cfg,
		events: events,
		log:    slog.Default().With("component", "stream"),
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		stop:   make(chan struct{}),
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// LastEventAt returns when the last account block arrived, zero if none has.
func (m *Manager) LastEventAt() time.Time {
	ts := m.lastEvent.Load()
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// QueueDepth returns the number of blocks waiting in the ingest queue.
func (m *Manager) QueueDepth() int {
	return len(m.events)
}

// Start runs the connection loop until Stop is called or the context ends.
// Connection errors are never fatal: the loop sleeps for the current
// backoff delay and reconnects.
func (m *Manager) Start(ctx context.Context) error {
	m.backoff = baseBackoff

	for {
		if m.stopped.Load() || ctx.Err() != nil {
			m.setState(StateDisconnected)
			return nil
		}

		err := m.runOnce(ctx)

		if m.stopped.Load() || ctx.Err() != nil {
			m.setState(StateDisconnected)
			return nil
		}

		delay := m.advanceBackoff()
		m.log.Warn("connection lost, reconnecting",
			"error", err,
			"retry_in", delay,
		)
		m.setState(StateReconnecting)
		metrics.StreamReconnects.Inc()

		select {
		case <-ctx.Done():
			m.setState(StateDisconnected)
			return nil
		case <-m.stop:
			m.setState(StateDisconnected)
			return nil
		case <-time.After(delay):
		}
	}
}

// Stop ends the connection loop: best-effort unsubscribe, then close the
// transport so the read loop unblocks and observes the stopped flag.
func (m *Manager) Stop() {
	m.stopped.Store(true)
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return
	}
	if m.subID != "" {
		req := rpcRequest{
			JSONRPC: "2.0",
			ID:      m.nextID.Add(1),
			Method:  methodUnsubscribe,
			Params:  []any{m.subID},
		}
		_ = m.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := m.conn.WriteJSON(req); err != nil {
			m.log.Debug("unsubscribe failed", "error", err)
		}
	}
	_ = m.conn.Close()
	m.conn = nil
}

func (m *Manager) runOnce(ctx context.Context) error {
	m.setState(StateConnecting)
	m.log.Info("connecting", "url", m.cfg.URL)

	conn, _, err := m.dialer.DialContext(ctx, m.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", m.cfg.URL, err)
	}
	m.setConn(conn)
	defer m.closeConn()

	// Unblock the read loop when the context ends mid-stream.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			m.closeConn()
		case <-watchDone:
		}
	}()

	m.setState(StateSubscribing)
	if err := m.subscribe(conn); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	m.resetBackoff()
	m.setState(StateStreaming)
	m.log.Info("subscribed", "subscription", m.subscriptionID(), "all", m.cfg.SubscribeAll)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		m.handleFrame(ctx, data)
	}
}

func (m *Manager) subscribe(conn *websocket.Conn) error {
	params := []any{channelByAddress, m.cfg.BridgeAddress}
	if m.cfg.SubscribeAll {
		params = []any{channelAll}
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      m.nextID.Add(1),
		Method:  methodSubscribe,
		Params:  params,
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	var resp rpcEnvelope
	if err := conn.ReadJSON(&resp); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}

	var subID string
	if err := json.Unmarshal(resp.Result, &subID); err != nil || subID == "" {
		return fmt.Errorf("unexpected subscribe result: %s", resp.Result)
	}
	m.setSubscriptionID(subID)
	return nil
}

// handleFrame decodes one frame and emits its account blocks. Malformed
// frames are dropped with a warning and do not affect subscription state or
// backoff.
func (m *Manager) handleFrame(ctx context.Context, data []byte) {
	metrics.StreamFrames.Inc()

	var env rpcEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.StreamMalformedFrames.Inc()
		m.log.Warn("dropping malformed frame", "error", err)
		return
	}
	if env.Method != methodSubscription || env.Params == nil {
		return
	}
	if env.Params.Subscription != m.subscriptionID() {
		m.log.Warn("notification for unknown subscription",
			"subscription", env.Params.Subscription,
		)
		return
	}

	blocks, err := decodeBlocks(env.Params.Result)
	if err != nil {
		metrics.StreamMalformedFrames.Inc()
		m.log.Warn("dropping malformed notification", "error", err)
		return
	}

	for _, b := range blocks {
		m.emit(ctx, b)
	}
}

// emit hands a block and its paired counter-block to the ingest queue,
// primary before paired, preserving arrival order.
func (m *Manager) emit(ctx context.Context, b *domain.AccountBlock) {
	if !m.cfg.SubscribeAll || m.touchesBridge(b) {
		m.deliver(ctx, b)
	}
	if p := b.PairedAccountBlock; p != nil {
		if !m.cfg.SubscribeAll || m.touchesBridge(p) {
			m.deliver(ctx, p)
		}
	}
}

func (m *Manager) deliver(ctx context.Context, b *domain.AccountBlock) {
	now := time.Now().Unix()
	m.lastEvent.Store(now)
	metrics.LastEventTimestamp.Set(float64(now))

	select {
	case <-ctx.Done():
	case m.events <- b:
		metrics.QueueDepth.Set(float64(len(m.events)))
	}
}

func (m *Manager) touchesBridge(b *domain.AccountBlock) bool {
	return b.Address == m.cfg.BridgeAddress || b.ToAddress == m.cfg.BridgeAddress
}

// advanceBackoff returns the current delay and doubles it, capped at
// maxBackoff.
func (m *Manager) advanceBackoff() time.Duration {
	d := m.backoff
	m.backoff *= 2
	if m.backoff > maxBackoff {
		m.backoff = maxBackoff
	}
	return d
}

func (m *Manager) resetBackoff() {
	m.backoff = baseBackoff
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
	metrics.StreamState.Set(float64(s))
}

func (m *Manager) setConn(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = conn
}

func (m *Manager) closeConn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) setSubscriptionID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subID = id
}

func (m *Manager) subscriptionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subID
}
