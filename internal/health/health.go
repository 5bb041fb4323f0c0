package health

import (
	"context"
	"time"

	"github.com/znnlabs/bridgewatch/internal/infra/storage"
	"github.com/znnlabs/bridgewatch/internal/stream"
)

// Status labels, worst case wins in the aggregate.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// staleEventAge is how long the stream may go quiet while Streaming before
// the report degrades. Bridge activity is bursty, so this is generous.
const staleEventAge = 30 * time.Minute

// Report is the detailed health snapshot.
type Report struct {
	Status      Status    `json:"status"`
	Stream      string    `json:"stream"`
	LastEventAt time.Time `json:"last_event_at,omitempty"`
	QueueDepth  int       `json:"queue_depth"`
	Subscribers int       `json:"subscribers"`
	Database    string    `json:"database"`
}

// Pinger is the slice of the database the monitor needs.
type Pinger interface {
	Health(ctx context.Context) error
}

// Monitor assembles health reports from the stream manager and the store.
type Monitor struct {
	stream *stream.Manager
	subs   storage.SubscriberRepository
	db     Pinger // nil in database-less runs
}

// NewMonitor creates a health monitor.
func NewMonitor(sm *stream.Manager, subs storage.SubscriberRepository, db Pinger) *Monitor {
	return &Monitor{stream: sm, subs: subs, db: db}
}

// CheckHealth builds the current health report.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	report := Report{
		Status:      StatusHealthy,
		Stream:      m.stream.State().String(),
		LastEventAt: m.stream.LastEventAt(),
		QueueDepth:  m.stream.QueueDepth(),
		Database:    "ok",
	}

	switch m.stream.State() {
	case stream.StateStreaming:
		if !report.LastEventAt.IsZero() &&
			time.Since(report.LastEventAt) > staleEventAge {
			report.Status = StatusDegraded
		}
	case stream.StateDisconnected:
		report.Status = StatusCritical
	default:
		report.Status = StatusDegraded
	}

	if m.db != nil {
		if err := m.db.Health(ctx); err != nil {
			report.Database = err.Error()
			// Storage down degrades, alerting still works
			if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		}
	} else {
		report.Database = "memory"
	}

	if subs, err := m.subs.GetActive(ctx); err == nil {
		report.Subscribers = len(subs)
	}

	return report
}
