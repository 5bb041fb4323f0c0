package config

import (
	"time"

	redisclient "github.com/znnlabs/bridgewatch/internal/infra/redis"
	"github.com/znnlabs/bridgewatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig           `yaml:"server"`
	Node       NodeConfig             `yaml:"node"`
	Tokens     map[string]TokenConfig `yaml:"tokens"`
	Signatures map[string]string      `yaml:"signatures"`
	Notify     NotifyConfig           `yaml:"notify"`
	Telegram   TelegramConfig         `yaml:"telegram"`
	Redis      redisclient.Config     `yaml:"redis"`
	Logging    LoggingConfig          `yaml:"logging"`
	Database   postgres.Config        `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// NodeConfig holds settings for the upstream node subscription.
type NodeConfig struct {
	URL           string `yaml:"url"`
	BridgeAddress string `yaml:"bridge_address"`
	BurnAddress   string `yaml:"burn_address"`
	// SubscribeAll subscribes to the node-wide account block channel and
	// filters for bridge activity locally, instead of letting the node
	// scope the subscription to the bridge address.
	SubscribeAll bool `yaml:"subscribe_all"`
}

// TokenConfig describes one supported token standard.
type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Decimals int    `yaml:"decimals"`
}

// NotifyConfig holds fanout settings.
type NotifyConfig struct {
	Workers   int           `yaml:"workers"`
	Timeout   time.Duration `yaml:"timeout"`
	QueueSize int           `yaml:"queue_size"`
}

// TelegramConfig holds delivery settings for the Telegram notifier. With an
// empty token, deliveries go to the log notifier instead.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	APIBase  string `yaml:"api_base"`
}

// Default bridge tables. These are data, not behavior: deployments override
// them wholesale from the config file as the bridge contract evolves.
var (
	DefaultBridgeAddress = "z1qxemdeddedxdrydgexxxxxxxxxxxxxxxmqgr0d"
	DefaultBurnAddress   = "z1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqsggv2f"

	DefaultTokens = map[string]TokenConfig{
		"zts1znnxxxxxxxxxxxxx9z4ulx": {Symbol: "ZNN", Decimals: 8},
		"zts1qsrxxxxxxxxxxxxxmrhjll": {Symbol: "QSR", Decimals: 8},
	}

	// Leading 4-byte method signatures of the bridge contract, hex encoded.
	DefaultSignatures = map[string]string{
		"61d224bc": "WrapToken",
		"b606945c": "UnwrapToken",
		"d4e06c79": "Redeem",
		"d4bb11c0": "UpdateWrapRequest",
	}
)
