package memory

import (
	"context"
	"testing"
	"time"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

func TestTxRepo_RecordIdempotent(t *testing.T) {
	repo := NewTxRepo(NewMemoryStorage())
	ctx := context.Background()

	tx := &domain.Transaction{Hash: "h1", Type: domain.TxTypeWrapToken, Amount: "100"}

	outcome, err := repo.Record(ctx, tx)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if outcome != domain.RecordInserted {
		t.Errorf("Expected inserted, got %s", outcome)
	}

	outcome, err = repo.Record(ctx, tx)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if outcome != domain.RecordAlreadyPresent {
		t.Errorf("Expected already present, got %s", outcome)
	}

	got, err := repo.GetByHash(ctx, "h1")
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if got == nil || got.Hash != "h1" {
		t.Errorf("Expected stored transaction, got %+v", got)
	}

	missing, err := repo.GetByHash(ctx, "nope")
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for unknown hash, got %+v", missing)
	}
}

func TestTxRepo_StatisticsWindow(t *testing.T) {
	store := NewMemoryStorage()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	repo := NewTxRepo(store)
	ctx := context.Background()

	recent := now.Add(-2 * time.Hour)
	stale := now.AddDate(0, 0, -3)

	txs := []*domain.Transaction{
		{Hash: "h1", Type: domain.TxTypeWrapToken, Token: "zts1znn", Amount: "100000000", Timestamp: &recent},
		{Hash: "h2", Type: domain.TxTypeWrapToken, Token: "zts1znn", Amount: "50000000", Timestamp: &recent},
		{Hash: "h3", Type: domain.TxTypeWrapToken, Token: "zts1znn", Amount: "999", Timestamp: &stale},
		{Hash: "h4", Type: domain.TxTypeUnwrapToken, Token: "zts1znn", Amount: "100", Timestamp: nil},
	}
	for _, tx := range txs {
		if _, err := repo.Record(ctx, tx); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	stats, err := repo.Statistics(ctx, 1)
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Expected 2 aggregate rows, got %d", len(stats))
	}

	// Rows come back ordered by type then token
	if stats[0].Type != domain.TxTypeUnwrapToken || stats[0].Count != 1 {
		t.Errorf("Expected 1 unwrap with nil timestamp included, got %+v", stats[0])
	}
	if stats[1].Type != domain.TxTypeWrapToken || stats[1].Count != 2 {
		t.Errorf("Expected 2 wraps inside window, got %+v", stats[1])
	}
	if stats[1].Volume != "150000000" {
		t.Errorf("Expected wrap volume 150000000, got %s", stats[1].Volume)
	}
}

func TestTxRepo_StatisticsExactVolume(t *testing.T) {
	repo := NewTxRepo(NewMemoryStorage())
	ctx := context.Background()

	// Sums past 2^53 base units must not round
	big1 := "9007199254740993"
	txs := []*domain.Transaction{
		{Hash: "h1", Type: domain.TxTypeWrapToken, Token: "zts1znn", Amount: big1},
		{Hash: "h2", Type: domain.TxTypeWrapToken, Token: "zts1znn", Amount: big1},
	}
	for _, tx := range txs {
		if _, err := repo.Record(ctx, tx); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	stats, err := repo.Statistics(ctx, 1)
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("Expected 1 aggregate row, got %d", len(stats))
	}
	if stats[0].Volume != "18014398509481986" {
		t.Errorf("Expected exact volume 18014398509481986, got %s", stats[0].Volume)
	}
}

func TestSubscriberRepo(t *testing.T) {
	repo := NewSubscriberRepo(NewMemoryStorage())
	ctx := context.Background()

	if err := repo.Add(ctx, 1, "alice"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := repo.Add(ctx, 2, "bob"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	subs, err := repo.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("Expected 2 active subscribers, got %d", len(subs))
	}

	if err := repo.Deactivate(ctx, 1); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	subs, _ = repo.GetActive(ctx)
	if len(subs) != 1 || subs[0].ID != 2 {
		t.Errorf("Expected only subscriber 2 active, got %+v", subs)
	}

	// Re-adding reactivates
	if err := repo.Add(ctx, 1, "alice"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	subs, _ = repo.GetActive(ctx)
	if len(subs) != 2 {
		t.Errorf("Expected reactivation, got %d active", len(subs))
	}

	if err := repo.UpdateFilters(ctx, 2, []domain.TxType{domain.TxTypeRedeem}); err != nil {
		t.Fatalf("UpdateFilters failed: %v", err)
	}
	subs, _ = repo.GetActive(ctx)
	for _, sub := range subs {
		if sub.ID == 2 {
			if len(sub.Filters) != 1 || sub.Filters[0] != domain.TxTypeRedeem {
				t.Errorf("Expected redeem filter, got %+v", sub.Filters)
			}
		}
	}
}
