package control

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/znnlabs/bridgewatch/internal/classify"
	"github.com/znnlabs/bridgewatch/internal/core/config"
	"github.com/znnlabs/bridgewatch/internal/core/domain"
	"github.com/znnlabs/bridgewatch/internal/health"
	redisclient "github.com/znnlabs/bridgewatch/internal/infra/redis"
	"github.com/znnlabs/bridgewatch/internal/infra/storage"
	"github.com/znnlabs/bridgewatch/internal/infra/storage/memory"
	"github.com/znnlabs/bridgewatch/internal/infra/storage/postgres"
	"github.com/znnlabs/bridgewatch/internal/notify"
	"github.com/znnlabs/bridgewatch/internal/pipeline"
	"github.com/znnlabs/bridgewatch/internal/stream"
)

// Watcher is the main application struct that manages the bridge watcher
// lifecycle.
type Watcher struct {
	cfg          Config
	stream       *stream.Manager
	pipeline     *pipeline.Pipeline
	healthServer *health.Server
	events       chan *domain.AccountBlock
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// Config holds the application configuration.
type Config struct {
	Port       int
	Node       config.NodeConfig
	Tokens     map[string]config.TokenConfig
	Signatures map[string]string
	Notify     config.NotifyConfig
	Telegram   config.TelegramConfig
	Redis      redisclient.Config
	Database   postgres.Config
}

// NewWatcher creates a new Watcher instance with all dependencies initialized.
func NewWatcher(cfg Config) (*Watcher, error) {

	// 1. Initialize Storage
	var txRepo storage.TransactionRepository
	var subRepo storage.SubscriberRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		txRepo = postgres.NewTxRepo(db)
		subRepo = postgres.NewSubscriberRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		txRepo = memory.NewTxRepo(store)
		subRepo = memory.NewSubscriberRepo(store)
		slog.Info("Using Memory storage")
	}

	// 2. Classification tables
	tokens := buildTokenTable(cfg.Tokens)
	classifier := classify.New(classify.Config{
		BridgeAddress: cfg.Node.BridgeAddress,
		Signatures:    buildSignatureTable(cfg.Signatures),
		Tokens:        tokens,
	})
	validator := classify.NewValidator(cfg.Node.BurnAddress, tokens)

	// 3. Delivery
	var notifier notify.Notifier
	if cfg.Telegram.BotToken != "" {
		notifier = notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.APIBase, tokens)
		slog.Info("Using Telegram delivery")
	} else {
		notifier = notify.NewLogNotifier()
		slog.Info("Using log delivery")
	}
	fanout := notify.NewFanout(notifier, cfg.Notify.Workers, cfg.Notify.Timeout)

	// 4. Redis seen cache (optional fast dedup path)
	var redisClient *redisclient.Client
	var seen pipeline.SeenCache
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, seen cache disabled", "error", err)
		} else {
			seen = redisClient
		}
	}

	// 5. Ingest queue, stream manager, pipeline
	events := make(chan *domain.AccountBlock, cfg.Notify.QueueSize)

	streamMgr := stream.NewManager(stream.Config{
		URL:           cfg.Node.URL,
		BridgeAddress: cfg.Node.BridgeAddress,
		SubscribeAll:  cfg.Node.SubscribeAll,
	}, events)

	pipe := pipeline.New(pipeline.Config{
		Classifier:   classifier,
		Validator:    validator,
		Transactions: txRepo,
		Subscribers:  subRepo,
		Fanout:       fanout,
		Seen:         seen,
		Events:       events,
	})

	// 6. Health Monitor
	var pinger health.Pinger
	if db != nil {
		pinger = db
	}
	healthMon := health.NewMonitor(streamMgr, subRepo, pinger)
	healthServer := health.NewServer(healthMon, cfg.Port)

	return &Watcher{
		cfg:          cfg,
		stream:       streamMgr,
		pipeline:     pipe,
		healthServer: healthServer,
		events:       events,
		db:           db,
		redisClient:  redisClient,
		log:          slog.Default(),
	}, nil
}

// Start starts the watcher and all its components.
func (w *Watcher) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := w.healthServer.Start(); err != nil {
			w.log.Error("Health server failed", "error", err)
		}
	}()

	// Start Pipeline
	go func() {
		if err := w.pipeline.Run(ctx); err != nil {
			w.log.Error("Pipeline failed", "error", err)
		}
	}()

	// Start Stream Connection Manager
	go func() {
		if err := w.stream.Start(ctx); err != nil {
			w.log.Error("Stream manager failed", "error", err)
		}
	}()

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop(ctx context.Context) error {
	w.log.Info("Stopping watcher...")

	// Stop the stream first so no new events enter the queue
	w.stream.Stop()

	// Close Redis
	if w.redisClient != nil {
		if err := w.redisClient.Close(); err != nil {
			w.log.Warn("Failed to close Redis", "error", err)
		}
	}

	// Close DB
	if w.db != nil {
		if err := w.db.Close(); err != nil {
			w.log.Warn("Failed to close database", "error", err)
		}
	}

	// Stop Health Server
	return w.healthServer.Stop(ctx)
}

func buildTokenTable(tokens map[string]config.TokenConfig) classify.TokenTable {
	table := make(classify.TokenTable, len(tokens))
	for zts, t := range tokens {
		table[zts] = classify.Token{Symbol: t.Symbol, Decimals: t.Decimals}
	}
	return table
}

func buildSignatureTable(sigs map[string]string) map[string]domain.TxType {
	table := make(map[string]domain.TxType, len(sigs))
	for sig, name := range sigs {
		key := strings.ToLower(strings.TrimPrefix(sig, "0x"))
		table[key] = domain.ParseTxType(name)
	}
	return table
}
