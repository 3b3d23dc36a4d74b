package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RPC_USER", "monitor")
	t.Setenv("RPC_PASS", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8332", cfg.RPCHost)
	assert.Equal(t, "mempool_monitor", cfg.DatabaseName)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, 10, cfg.MaxConsecutiveFailures)
	assert.Equal(t, ":3000", cfg.OpsAddr)
	assert.Empty(t, cfg.AuditCronSpec, "audit is off unless scheduled")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RPC_USER", "monitor")
	t.Setenv("RPC_PASS", "hunter2")
	t.Setenv("RPC_HOST", "node.internal:18332")
	t.Setenv("CLICKHOUSE_ADDR", "clickhouse://ch.internal:9000?sslmode=disable")
	t.Setenv("MONITOR_DB", "mempool_testnet")
	t.Setenv("POLL_INTERVAL", "15s")
	t.Setenv("MAX_CONSECUTIVE_FAILURES", "3")
	t.Setenv("AUDIT_CRON_SPEC", "0 0 * * * *")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "node.internal:18332", cfg.RPCHost)
	assert.Equal(t, "mempool_testnet", cfg.DatabaseName)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.MaxConsecutiveFailures)
	assert.Equal(t, "0 0 * * * *", cfg.AuditCronSpec)
}

func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv("RPC_USER", "")
	t.Setenv("RPC_PASS", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPC_USER")

	t.Setenv("RPC_USER", "monitor")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPC_PASS")
}

func TestLoadIgnoresUnparsableDurations(t *testing.T) {
	t.Setenv("RPC_USER", "monitor")
	t.Setenv("RPC_PASS", "hunter2")
	t.Setenv("POLL_INTERVAL", "every minute or so")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.PollInterval, "bad value falls back to the default")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			RPCHost:                "localhost:8332",
			RPCUser:                "monitor",
			RPCPass:                "hunter2",
			ClickHouseAddr:         "clickhouse://localhost:9000",
			PollInterval:           time.Minute,
			MaxConsecutiveFailures: 10,
		}
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.RPCHost = "" }},
		{"empty clickhouse addr", func(c *Config) { c.ClickHouseAddr = "" }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"negative failure budget", func(c *Config) { c.MaxConsecutiveFailures = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
