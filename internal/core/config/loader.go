package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Node.URL == "" {
		return nil, fmt.Errorf("node.url is required")
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Node.BridgeAddress == "" {
		cfg.Node.BridgeAddress = DefaultBridgeAddress
	}
	if cfg.Node.BurnAddress == "" {
		cfg.Node.BurnAddress = DefaultBurnAddress
	}
	if len(cfg.Tokens) == 0 {
		cfg.Tokens = DefaultTokens
	}
	if len(cfg.Signatures) == 0 {
		cfg.Signatures = DefaultSignatures
	}
	if cfg.Notify.Workers == 0 {
		cfg.Notify.Workers = 4
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 10 * time.Second
	}
	if cfg.Notify.QueueSize == 0 {
		cfg.Notify.QueueSize = 256
	}
	if cfg.Telegram.APIBase == "" {
		cfg.Telegram.APIBase = "https://api.telegram.org"
	}
}
