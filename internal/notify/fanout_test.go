package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

// mockNotifier records deliveries and fails for configured subscriber IDs.
type mockNotifier struct {
	mu       sync.Mutex
	sent     []int64
	failIDs  map[int64]bool
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func (m *mockNotifier) Send(ctx context.Context, sub *domain.Subscriber, tx *domain.Transaction) error {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--

	if m.failIDs[sub.ID] {
		return errors.New("boom")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.sent = append(m.sent, sub.ID)
	return nil
}

func testTx() *domain.Transaction {
	return &domain.Transaction{
		Hash:            "hash-1",
		Type:            domain.TxTypeWrapToken,
		FormattedAmount: "1.00",
	}
}

func TestDispatch_FilterMatrix(t *testing.T) {
	notifier := &mockNotifier{}
	f := NewFanout(notifier, 4, time.Second)

	subs := []*domain.Subscriber{
		{ID: 1, Active: true},
		{ID: 2, Active: true, Filters: []domain.TxType{domain.TxTypeWrapToken}},
		{ID: 3, Active: true, Filters: []domain.TxType{domain.TxTypeRedeem}},
	}

	attempts := f.Dispatch(context.Background(), testTx(), subs)
	if len(attempts) != 3 {
		t.Fatalf("Expected 3 attempts, got %d", len(attempts))
	}

	outcomes := map[int64]domain.DeliveryOutcome{}
	for _, a := range attempts {
		if a.ID == "" {
			t.Error("Expected attempt to carry an ID")
		}
		if a.TxHash != "hash-1" {
			t.Errorf("Expected attempt for hash-1, got %s", a.TxHash)
		}
		outcomes[a.SubscriberID] = a.Outcome
	}

	// Empty filter set receives everything
	if outcomes[1] != domain.DeliveryDelivered {
		t.Errorf("Expected subscriber 1 delivered, got %s", outcomes[1])
	}
	if outcomes[2] != domain.DeliveryDelivered {
		t.Errorf("Expected subscriber 2 delivered, got %s", outcomes[2])
	}
	if outcomes[3] != domain.DeliveryFilteredOut {
		t.Errorf("Expected subscriber 3 filtered out, got %s", outcomes[3])
	}
}

func TestDispatch_FailureIsolation(t *testing.T) {
	notifier := &mockNotifier{failIDs: map[int64]bool{2: true}}
	f := NewFanout(notifier, 4, time.Second)

	subs := []*domain.Subscriber{
		{ID: 1, Active: true},
		{ID: 2, Active: true},
		{ID: 3, Active: true},
	}

	attempts := f.Dispatch(context.Background(), testTx(), subs)

	var delivered, failed int
	for _, a := range attempts {
		switch a.Outcome {
		case domain.DeliveryDelivered:
			delivered++
		case domain.DeliveryFailed:
			failed++
			if a.Error == "" {
				t.Error("Expected failed attempt to record the error")
			}
		}
	}
	if delivered != 2 {
		t.Errorf("Expected 2 delivered, got %d", delivered)
	}
	if failed != 1 {
		t.Errorf("Expected 1 failed, got %d", failed)
	}
}

func TestDispatch_BoundedConcurrency(t *testing.T) {
	notifier := &mockNotifier{delay: 20 * time.Millisecond}
	f := NewFanout(notifier, 2, time.Second)

	subs := make([]*domain.Subscriber, 8)
	for i := range subs {
		subs[i] = &domain.Subscriber{ID: int64(i + 1), Active: true}
	}

	f.Dispatch(context.Background(), testTx(), subs)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if notifier.maxSeen > 2 {
		t.Errorf("Expected at most 2 concurrent deliveries, saw %d", notifier.maxSeen)
	}
	if len(notifier.sent) != 8 {
		t.Errorf("Expected 8 deliveries, got %d", len(notifier.sent))
	}
}

func TestDispatch_NoSubscribers(t *testing.T) {
	f := NewFanout(&mockNotifier{}, 4, time.Second)

	attempts := f.Dispatch(context.Background(), testTx(), nil)
	if len(attempts) != 0 {
		t.Errorf("Expected no attempts, got %d", len(attempts))
	}
}
