package notify

import (
	"context"
	"log/slog"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

// Notifier delivers one transaction alert to one subscriber. The fanout
// does not know how messages are rendered or transported.
type Notifier interface {
	Send(ctx context.Context, sub *domain.Subscriber, tx *domain.Transaction) error
}

// LogNotifier writes deliveries to the log. Used in development and when no
// delivery transport is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: slog.Default().With("component", "notify")}
}

func (n *LogNotifier) Send(
	ctx context.Context,
	sub *domain.Subscriber,
	tx *domain.Transaction,
) error {
	n.log.Info("notification",
		"subscriber", sub.ID,
		"type", tx.Type,
		"hash", tx.Hash,
		"amount", tx.FormattedAmount,
	)
	return nil
}
