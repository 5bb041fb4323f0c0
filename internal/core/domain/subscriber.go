package domain

import "time"

// Subscriber is a notification recipient. Subscribers are soft-deactivated
// on unsubscribe, never deleted, so re-subscribing reactivates the same row.
type Subscriber struct {
	ID        int64
	Username  string
	Active    bool
	Filters   []TxType // empty = receive all types
	CreatedAt time.Time
}

// Wants reports whether the subscriber's filter set admits the given type.
// An empty filter set admits everything.
func (s *Subscriber) Wants(t TxType) bool {
	if len(s.Filters) == 0 {
		return true
	}
	for _, f := range s.Filters {
		if f == t {
			return true
		}
	}
	return false
}

// DeliveryOutcome is the result of one delivery attempt.
type DeliveryOutcome string

const (
	DeliveryDelivered   DeliveryOutcome = "delivered"
	DeliveryFailed      DeliveryOutcome = "failed"
	DeliveryFilteredOut DeliveryOutcome = "filtered_out"
)

// DeliveryAttempt is the ephemeral bookkeeping record for one
// (transaction, subscriber) pair during fanout. It is never persisted.
type DeliveryAttempt struct {
	ID           string
	TxHash       string
	SubscriberID int64
	Outcome      DeliveryOutcome
	Error        string
}
