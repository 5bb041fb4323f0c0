package storage

import (
	"context"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

// TransactionRepository is the deduplicating transaction store.
type TransactionRepository interface {
	// Record persists a transaction keyed by hash. Recording an already
	// stored hash is a no-op reported as RecordAlreadyPresent, never an
	// error; this is what makes at-least-once ingestion safe to replay.
	Record(ctx context.Context, tx *domain.Transaction) (domain.RecordOutcome, error)

	// GetByHash retrieves a transaction by hash, nil if absent
	GetByHash(ctx context.Context, hash string) (*domain.Transaction, error)

	// Statistics aggregates stored transactions by type and token over the
	// trailing window. Transactions without a timestamp are always
	// included: they predate timestamp extraction and belong to lifetime
	// totals.
	Statistics(ctx context.Context, windowDays int) ([]domain.StatRow, error)
}

// SubscriberRepository is the subscriber persistence boundary. The pipeline
// only reads it; writes come from the command surface.
type SubscriberRepository interface {
	// Add creates a subscriber or reactivates a previously removed one
	Add(ctx context.Context, id int64, username string) error

	// Deactivate soft-removes a subscriber
	Deactivate(ctx context.Context, id int64) error

	// GetActive retrieves all active subscribers
	GetActive(ctx context.Context) ([]*domain.Subscriber, error)

	// UpdateFilters replaces a subscriber's filter set wholesale
	UpdateFilters(ctx context.Context, id int64, filters []domain.TxType) error
}
