package pipeline

import (
	"context"
	"log/slog"

	"github.com/znnlabs/bridgewatch/internal/classify"
	"github.com/znnlabs/bridgewatch/internal/core/domain"
	"github.com/znnlabs/bridgewatch/internal/infra/storage"
	"github.com/znnlabs/bridgewatch/internal/metrics"
	"github.com/znnlabs/bridgewatch/internal/notify"
)

// SeenCache is an optional fast duplicate path consulted before the store.
// Implemented by the redis client.
type SeenCache interface {
	MarkSeen(ctx context.Context, hash string) (bool, error)
	ClearSeen(ctx context.Context, hash string) error
}

// Pipeline consumes account blocks from the ingest queue in strict arrival
// order: classify, filter, record, fan out. Classification and filtering
// are pure; the queue bound is the only backpressure mechanism.
type Pipeline struct {
	classifier *classify.Classifier
	validator  *classify.Validator
	txs        storage.TransactionRepository
	subs       storage.SubscriberRepository
	fanout     *notify.Fanout
	seen       SeenCache // nil when redis is not configured
	events     <-chan *domain.AccountBlock
	log        *slog.Logger
}

// Config holds pipeline dependencies.
type Config struct {
	Classifier   *classify.Classifier
	Validator    *classify.Validator
	Transactions storage.TransactionRepository
	Subscribers  storage.SubscriberRepository
	Fanout       *notify.Fanout
	Seen         SeenCache
	Events       <-chan *domain.AccountBlock
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		classifier: cfg.Classifier,
		validator:  cfg.Validator,
		txs:        cfg.Transactions,
		subs:       cfg.Subscribers,
		fanout:     cfg.Fanout,
		seen:       cfg.Seen,
		events:     cfg.Events,
		log:        slog.Default().With("component", "pipeline"),
	}
}

// Run processes queued blocks until the context ends or the queue closes.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case block, ok := <-p.events:
			if !ok {
				return nil
			}
			metrics.QueueDepth.Set(float64(len(p.events)))
			p.Process(ctx, block)
		}
	}
}

// Process runs one account block through the full pipeline.
func (p *Pipeline) Process(ctx context.Context, block *domain.AccountBlock) {
	tx := p.classifier.Classify(block)
	metrics.TransactionsClassified.WithLabelValues(string(tx.Type)).Inc()

	if !p.validator.Accepts(tx) {
		p.log.Debug("transaction filtered",
			"hash", tx.Hash,
			"type", tx.Type,
		)
		return
	}
	metrics.TransactionsAccepted.WithLabelValues(string(tx.Type)).Inc()

	if p.isDuplicate(ctx, tx) {
		metrics.RecordsDuplicate.Inc()
		p.log.Debug("duplicate transaction suppressed", "hash", tx.Hash)
		return
	}

	p.log.Info("new transaction",
		"type", tx.Type,
		"hash", tx.Hash,
		"amount", tx.FormattedAmount,
	)

	subs, err := p.subs.GetActive(ctx)
	if err != nil {
		p.log.Error("failed to load subscribers", "error", err)
		return
	}
	p.fanout.Dispatch(ctx, tx, subs)
}

// isDuplicate records the transaction and reports whether it had been seen
// before. A storage error does not count as a duplicate: alerting is the
// primary guarantee and must not be blocked by a storage outage.
func (p *Pipeline) isDuplicate(ctx context.Context, tx *domain.Transaction) bool {
	if p.seen != nil {
		first, err := p.seen.MarkSeen(ctx, tx.Hash)
		if err != nil {
			p.log.Debug("seen cache unavailable", "error", err)
		} else if !first {
			return true
		}
	}

	outcome, err := p.txs.Record(ctx, tx)
	if err != nil {
		metrics.StoreErrors.Inc()
		p.log.Error("failed to record transaction",
			"hash", tx.Hash,
			"error", err,
		)
		// The hash must not stay marked while unrecorded, or the replay
		// would be suppressed before the store recovers.
		if p.seen != nil {
			if cerr := p.seen.ClearSeen(ctx, tx.Hash); cerr != nil {
				p.log.Debug("seen cache clear failed", "error", cerr)
			}
		}
		return false
	}
	if outcome == domain.RecordAlreadyPresent {
		return true
	}
	metrics.RecordsInserted.Inc()
	return false
}
