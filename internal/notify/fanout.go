package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
	"github.com/znnlabs/bridgewatch/internal/metrics"
)

// Fanout dispatches one transaction to many subscribers with bounded
// concurrency. Each subscriber is attempted exactly once; a failing
// delivery is recorded and never blocks the rest of the batch.
type Fanout struct {
	notifier Notifier
	workers  int
	timeout  time.Duration
	log      *slog.Logger
}

// NewFanout creates a fanout dispatcher.
func NewFanout(notifier Notifier, workers int, timeout time.Duration) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fanout{
		notifier: notifier,
		workers:  workers,
		timeout:  timeout,
		log:      slog.Default().With("component", "fanout"),
	}
}

// Dispatch evaluates every subscriber against the transaction and attempts
// delivery to those whose filter set admits it. No delivery order is
// guaranteed across subscribers.
func (f *Fanout) Dispatch(
	ctx context.Context,
	tx *domain.Transaction,
	subs []*domain.Subscriber,
) []domain.DeliveryAttempt {
	attempts := make([]domain.DeliveryAttempt, len(subs))

	sem := make(chan struct{}, f.workers)
	var wg sync.WaitGroup

	for i, sub := range subs {
		attempts[i] = domain.DeliveryAttempt{
			ID:           uuid.NewString(),
			TxHash:       tx.Hash,
			SubscriberID: sub.ID,
		}

		if !sub.Wants(tx.Type) {
			attempts[i].Outcome = domain.DeliveryFilteredOut
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sub *domain.Subscriber) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			dctx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			if err := f.notifier.Send(dctx, sub, tx); err != nil {
				attempts[i].Outcome = domain.DeliveryFailed
				attempts[i].Error = err.Error()
				f.log.Error("delivery failed",
					"subscriber", sub.ID,
					"hash", tx.Hash,
					"error", err,
				)
			} else {
				attempts[i].Outcome = domain.DeliveryDelivered
			}
			metrics.DeliveryLatency.Observe(time.Since(start).Seconds())
		}(i, sub)
	}

	wg.Wait()

	for i := range attempts {
		metrics.DeliveryAttempts.WithLabelValues(string(attempts[i].Outcome)).Inc()
	}
	return attempts
}
