package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CLICKHOUSE_HOST", "example.clickhouse.cloud")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "example.clickhouse.cloud", cfg.ClickHouse.Host)
	assert.True(t, cfg.ClickHouse.Secure, "TLS on by default")
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultAuditPath, cfg.AuditPath)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLICKHOUSE_PORT", "9440")
	t.Setenv("CLICKHOUSE_SECURE", "false")
	t.Setenv("OPENAI_MODEL", "gpt-5")
	t.Setenv("OPENAI_TIMEOUT", "30s")
	t.Setenv("ASKFIT_LISTEN_ADDR", ":9000")
	t.Setenv("ASKFIT_AUDIT_PATH", "/tmp/audit.db")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9440, cfg.ClickHouse.Port)
	assert.False(t, cfg.ClickHouse.Secure)
	assert.Equal(t, "gpt-5", cfg.OpenAI.Model)
	assert.Equal(t, 30*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/tmp/audit.db", cfg.AuditPath)
}

func TestFromEnv_BadPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLICKHOUSE_PORT", "not-a-port")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLICKHOUSE_PORT")
}

func TestValidate_MissingRequired(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CLICKHOUSE_HOST", "")

	cfg, err := FromEnv()
	require.NoError(t, err, "FromEnv itself does not require the keys")

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg.OpenAI.APIKey = "sk-test"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLICKHOUSE_HOST")
}
