package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

// SubscriberRepo implements storage.SubscriberRepository using PostgreSQL.
type SubscriberRepo struct {
	db *DB
}

// NewSubscriberRepo creates a new PostgreSQL subscriber repository.
func NewSubscriberRepo(db *DB) *SubscriberRepo {
	return &SubscriberRepo{db: db}
}

// Add creates a subscriber, or reactivates an existing one keeping its
// filter set.
func (r *SubscriberRepo) Add(ctx context.Context, id int64, username string) error {
	query := `
		INSERT INTO subscribers (id, username, active, filters, created_at)
		VALUES ($1, $2, TRUE, '[]', NOW())
		ON CONFLICT (id) DO UPDATE SET
			active = TRUE,
			username = EXCLUDED.username
	`
	if _, err := r.db.ExecContext(ctx, query, id, nullStr(username)); err != nil {
		return fmt.Errorf("failed to add subscriber: %w", err)
	}
	return nil
}

// Deactivate soft-removes a subscriber.
func (r *SubscriberRepo) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE subscribers SET active = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to deactivate subscriber: %w", err)
	}
	return nil
}

type subscriberRow struct {
	ID        int64          `db:"id"`
	Username  sql.NullString `db:"username"`
	Active    bool           `db:"active"`
	Filters   []byte         `db:"filters"`
	CreatedAt time.Time      `db:"created_at"`
}

func (s *subscriberRow) toDomain() *domain.Subscriber {
	sub := &domain.Subscriber{
		ID:        s.ID,
		Active:    s.Active,
		CreatedAt: s.CreatedAt.UTC(),
	}
	if s.Username.Valid {
		sub.Username = s.Username.String
	}
	if len(s.Filters) > 0 {
		// A corrupt filter set degrades to "receive all", never to an error
		_ = json.Unmarshal(s.Filters, &sub.Filters)
	}
	return sub
}

// GetActive retrieves all active subscribers.
func (r *SubscriberRepo) GetActive(ctx context.Context) ([]*domain.Subscriber, error) {
	query := `
		SELECT id, username, active, filters, created_at
		FROM subscribers
		WHERE active
		ORDER BY id
	`

	var rows []subscriberRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get active subscribers: %w", err)
	}

	subs := make([]*domain.Subscriber, 0, len(rows))
	for i := range rows {
		subs = append(subs, rows[i].toDomain())
	}
	return subs, nil
}

// UpdateFilters replaces a subscriber's filter set wholesale.
func (r *SubscriberRepo) UpdateFilters(
	ctx context.Context,
	id int64,
	filters []domain.TxType,
) error {
	if filters == nil {
		filters = []domain.TxType{}
	}
	data, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	query := `UPDATE subscribers SET filters = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, data, id); err != nil {
		return fmt.Errorf("failed to update filters: %w", err)
	}
	return nil
}
