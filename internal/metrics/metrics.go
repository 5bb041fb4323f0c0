package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreamFrames tracks frames received on the subscription connection
	StreamFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridgewatch_stream_frames_total",
			Help: "Total number of frames received from the node",
		},
	)

	// StreamMalformedFrames tracks dropped undecodable frames
	StreamMalformedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridgewatch_stream_malformed_frames_total",
			Help: "Total number of malformed frames dropped",
		},
	)

	// StreamReconnects tracks reconnect attempts
	StreamReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridgewatch_stream_reconnects_total",
			Help: "Total number of reconnect attempts",
		},
	)

	// StreamState tracks the connection state machine (see stream.State)
	StreamState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridgewatch_stream_state",
			Help: "Current stream connection state (0=disconnected, 1=connecting, 2=subscribing, 3=streaming, 4=reconnecting)",
		},
	)

	// LastEventTimestamp tracks when the last account block arrived
	LastEventTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridgewatch_last_event_timestamp_seconds",
			Help: "Unix timestamp of the last account block received",
		},
	)

	// QueueDepth tracks the ingest queue between stream and pipeline
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridgewatch_ingest_queue_depth",
			Help: "Number of account blocks waiting in the ingest queue",
		},
	)

	// TransactionsClassified tracks classified transactions per type
	TransactionsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgewatch_transactions_classified_total",
			Help: "Total number of transactions classified",
		},
		[]string{"type"},
	)

	// TransactionsAccepted tracks transactions that passed the validity filter
	TransactionsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgewatch_transactions_accepted_total",
			Help: "Total number of transactions accepted by the validity filter",
		},
		[]string{"type"},
	)

	// RecordsInserted tracks new rows written by the dedup store
	RecordsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridgewatch_records_inserted_total",
			Help: "Total number of transactions recorded",
		},
	)

	// RecordsDuplicate tracks replayed transactions suppressed by dedup
	RecordsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridgewatch_records_duplicate_total",
			Help: "Total number of duplicate transactions suppressed",
		},
	)

	// StoreErrors tracks persistence failures
	StoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridgewatch_store_errors_total",
			Help: "Total number of storage errors",
		},
	)

	// DeliveryAttempts tracks fanout attempts per outcome
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgewatch_delivery_attempts_total",
			Help: "Total number of delivery attempts",
		},
		[]string{"outcome"},
	)

	// DeliveryLatency tracks delivery latency per subscriber
	DeliveryLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bridgewatch_delivery_latency_seconds",
			Help:    "Delivery latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
