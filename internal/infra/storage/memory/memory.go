package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

// MemoryStorage backs the repositories for tests and database-less runs.
type MemoryStorage struct {
	txs     map[string]*domain.Transaction
	txOrder []string
	subs    map[int64]*domain.Subscriber
	mu      sync.RWMutex
	now     func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		txs:  make(map[string]*domain.Transaction),
		subs: make(map[int64]*domain.Subscriber),
		now:  time.Now,
	}
}

// SetClock overrides the clock used by the statistics window. Test hook.
func (s *MemoryStorage) SetClock(now func() time.Time) {
	s.now = now
}

// -----------------------------------------------------------------------------
// Transaction Repository
// -----------------------------------------------------------------------------

type TxRepo struct {
	store *MemoryStorage
}

func NewTxRepo(store *MemoryStorage) *TxRepo {
	return &TxRepo{store: store}
}

func (r *TxRepo) Record(
	ctx context.Context,
	tx *domain.Transaction,
) (domain.RecordOutcome, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.txs[tx.Hash]; exists {
		return domain.RecordAlreadyPresent, nil
	}
	cp := *tx
	r.store.txs[tx.Hash] = &cp
	r.store.txOrder = append(r.store.txOrder, tx.Hash)
	return domain.RecordInserted, nil
}

func (r *TxRepo) GetByHash(ctx context.Context, hash string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	tx, ok := r.store.txs[hash]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (r *TxRepo) Statistics(ctx context.Context, windowDays int) ([]domain.StatRow, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	cutoff := r.store.now().AddDate(0, 0, -windowDays)

	type key struct {
		t     domain.TxType
		token string
	}
	agg := make(map[key]*domain.StatRow)
	volumes := make(map[key]*big.Int)

	for _, hash := range r.store.txOrder {
		tx := r.store.txs[hash]
		// Null timestamps predate timestamp extraction; keep them in
		// lifetime totals.
		if tx.Timestamp != nil && !tx.Timestamp.After(cutoff) {
			continue
		}
		k := key{t: tx.Type, token: tx.Token}
		row, ok := agg[k]
		if !ok {
			row = &domain.StatRow{Type: tx.Type, Token: tx.Token}
			agg[k] = row
			volumes[k] = new(big.Int)
		}
		row.Count++
		if v, ok := new(big.Int).SetString(tx.Amount, 10); ok {
			volumes[k].Add(volumes[k], v)
		}
	}

	stats := make([]domain.StatRow, 0, len(agg))
	for k, row := range agg {
		row.Volume = volumes[k].String()
		stats = append(stats, *row)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Type != stats[j].Type {
			return stats[i].Type < stats[j].Type
		}
		return stats[i].Token < stats[j].Token
	})
	return stats, nil
}

// -----------------------------------------------------------------------------
// Subscriber Repository
// -----------------------------------------------------------------------------

type SubscriberRepo struct {
	store *MemoryStorage
}

func NewSubscriberRepo(store *MemoryStorage) *SubscriberRepo {
	return &SubscriberRepo{store: store}
}

func (r *SubscriberRepo) Add(ctx context.Context, id int64, username string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if sub, exists := r.store.subs[id]; exists {
		sub.Active = true
		sub.Username = username
		return nil
	}
	r.store.subs[id] = &domain.Subscriber{
		ID:        id,
		Username:  username,
		Active:    true,
		Filters:   []domain.TxType{},
		CreatedAt: r.store.now().UTC(),
	}
	return nil
}

func (r *SubscriberRepo) Deactivate(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if sub, exists := r.store.subs[id]; exists {
		sub.Active = false
	}
	return nil
}

func (r *SubscriberRepo) GetActive(ctx context.Context) ([]*domain.Subscriber, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := make([]int64, 0, len(r.store.subs))
	for id, sub := range r.store.subs {
		if sub.Active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	subs := make([]*domain.Subscriber, 0, len(ids))
	for _, id := range ids {
		cp := *r.store.subs[id]
		cp.Filters = append([]domain.TxType(nil), cp.Filters...)
		subs = append(subs, &cp)
	}
	return subs, nil
}

func (r *SubscriberRepo) UpdateFilters(
	ctx context.Context,
	id int64,
	filters []domain.TxType,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if sub, exists := r.store.subs[id]; exists {
		sub.Filters = append([]domain.TxType{}, filters...)
	}
	return nil
}
