package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

// TxRepo implements storage.TransactionRepository using PostgreSQL.
type TxRepo struct {
	db *DB
}

// NewTxRepo creates a new PostgreSQL transaction repository.
func NewTxRepo(db *DB) *TxRepo {
	return &TxRepo{db: db}
}

// Record inserts a transaction with insert-or-ignore semantics. The unique
// constraint on hash is what keeps concurrent inserts of the same hash down
// to one durable row.
func (r *TxRepo) Record(
	ctx context.Context,
	tx *domain.Transaction,
) (domain.RecordOutcome, error) {
	query := `
		INSERT INTO transactions (
			hash, type, token, amount, eth_addr, from_addr, to_addr, block_height, timestamp, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (hash) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		tx.Hash, string(tx.Type), nullStr(tx.Token), tx.Amount, nullStr(tx.EthAddress),
		tx.From, tx.To, tx.BlockHeight, nullTime(tx.Timestamp),
	)
	if err != nil {
		return domain.RecordAlreadyPresent, fmt.Errorf("failed to record transaction: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.RecordAlreadyPresent, fmt.Errorf("failed to read insert result: %w", err)
	}
	if rows == 0 {
		return domain.RecordAlreadyPresent, nil
	}
	return domain.RecordInserted, nil
}

type txRow struct {
	Hash        string         `db:"hash"`
	Type        string         `db:"type"`
	Token       sql.NullString `db:"token"`
	Amount      string         `db:"amount"`
	EthAddr     sql.NullString `db:"eth_addr"`
	From        string         `db:"from_addr"`
	To          string         `db:"to_addr"`
	BlockHeight uint64         `db:"block_height"`
	Timestamp   sql.NullTime   `db:"timestamp"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (t *txRow) toDomain() *domain.Transaction {
	tx := &domain.Transaction{
		Hash:        t.Hash,
		Type:        domain.TxType(t.Type),
		From:        t.From,
		To:          t.To,
		Amount:      t.Amount,
		BlockHeight: t.BlockHeight,
	}
	if t.Token.Valid {
		tx.Token = t.Token.String
	}
	if t.EthAddr.Valid {
		tx.EthAddress = t.EthAddr.String
	}
	if t.Timestamp.Valid {
		ts := t.Timestamp.Time.UTC()
		tx.Timestamp = &ts
	}
	return tx
}

// GetByHash retrieves a transaction by hash.
func (r *TxRepo) GetByHash(ctx context.Context, hash string) (*domain.Transaction, error) {
	query := `
		SELECT hash, type, token, amount, eth_addr, from_addr, to_addr, block_height, timestamp, created_at
		FROM transactions
		WHERE hash = $1
	`

	var row txRow
	err := r.db.GetContext(ctx, &row, query, hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return row.toDomain(), nil
}

// Statistics aggregates transactions by type and token over the trailing
// window. Rows with a NULL timestamp predate timestamp extraction and are
// always included.
func (r *TxRepo) Statistics(ctx context.Context, windowDays int) ([]domain.StatRow, error) {
	query := `
		SELECT
			type,
			COALESCE(token, '') AS token,
			COUNT(*) AS count,
			COALESCE(SUM(amount::numeric), 0)::text AS volume
		FROM transactions
		WHERE timestamp IS NULL OR timestamp > NOW() - $1 * INTERVAL '1 day'
		GROUP BY type, token
		ORDER BY type, token
	`

	var rows []struct {
		Type   string `db:"type"`
		Token  string `db:"token"`
		Count  int64  `db:"count"`
		Volume string `db:"volume"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, windowDays); err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	stats := make([]domain.StatRow, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, domain.StatRow{
			Type:   domain.TxType(row.Type),
			Token:  row.Token,
			Count:  row.Count,
			Volume: row.Volume,
		})
	}
	return stats, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
