package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/canopy-network/mempoolx/pkg/utils"
)

// Config collects every knob the monitor reads from the environment.
// Everything except the node credentials has a usable default.
type Config struct {
	// Bitcoin Core JSON-RPC endpoint.
	RPCHost string
	RPCUser string
	RPCPass string

	// ClickHouse connection and target database.
	ClickHouseAddr string
	DatabaseName   string

	// Sampling loop.
	PollInterval           time.Duration
	MaxConsecutiveFailures int

	// Ops HTTP server bind address.
	OpsAddr string

	// Cron spec (with seconds field) for the replay audit. Empty disables it.
	AuditCronSpec string
}

// Load reads the configuration from the environment and validates it.
// A missing mandatory key is a startup error; nothing is re-read mid-run.
func Load() (*Config, error) {
	cfg := &Config{
		RPCHost:                utils.Env("RPC_HOST", "localhost:8332"),
		RPCUser:                utils.Env("RPC_USER", ""),
		RPCPass:                utils.Env("RPC_PASS", ""),
		ClickHouseAddr:         utils.Env("CLICKHOUSE_ADDR", "clickhouse://localhost:9000?sslmode=disable"),
		DatabaseName:           utils.Env("MONITOR_DB", "mempool_monitor"),
		PollInterval:           utils.EnvDuration("POLL_INTERVAL", 60*time.Second),
		MaxConsecutiveFailures: utils.EnvInt("MAX_CONSECUTIVE_FAILURES", 10),
		OpsAddr:                utils.Env("ADDR", ":3000"),
		AuditCronSpec:          utils.Env("AUDIT_CRON_SPEC", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or unusable setting.
func (c *Config) Validate() error {
	if c.RPCUser == "" {
		return errors.New("RPC_USER is required")
	}
	if c.RPCPass == "" {
		return errors.New("RPC_PASS is required")
	}
	if c.RPCHost == "" {
		return errors.New("RPC_HOST must not be empty")
	}
	if c.ClickHouseAddr == "" {
		return errors.New("CLICKHOUSE_ADDR must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.MaxConsecutiveFailures <= 0 {
		return fmt.Errorf("MAX_CONSECUTIVE_FAILURES must be positive, got %d", c.MaxConsecutiveFailures)
	}
	return nil
}
