package execute

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/askfit/internal/grammar"
	"github.com/roach88/askfit/internal/schema"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{
		Host:     "abc.clickhouse.cloud",
		Port:     9440,
		User:     "default",
		Password: "s3cret",
		Database: "fitness",
		Secure:   true,
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "clickhouse://")
	assert.Contains(t, dsn, "default:s3cret@abc.clickhouse.cloud:9440")
	assert.Contains(t, dsn, "/fitness")
	assert.Contains(t, dsn, "secure=true")
	assert.Contains(t, dsn, "dial_timeout=30s")
}

func TestConfig_DSN_Insecure(t *testing.T) {
	cfg := Config{Host: "localhost", Port: 9000}
	dsn := cfg.DSN()
	assert.NotContains(t, dsn, "secure=true")
	assert.NotContains(t, dsn, "@", "no credentials means no userinfo section")
}

func TestOpen_RequiresHost(t *testing.T) {
	_, err := Open(Config{}, nil)
	assert.Error(t, err)
}

func TestExecute_RefusesZeroStatement(t *testing.T) {
	cfg := Config{Host: "localhost", Port: 9000}
	store, err := Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer store.Close()

	// A zero Statement never reaches the network: the precondition check
	// fires before any connection is dialed.
	_, err = store.Execute(context.Background(), grammar.Statement{})
	assert.ErrorIs(t, err, ErrUnvalidated)
}

func TestStatementMinting_IsTheOnlyPathIn(t *testing.T) {
	// Statements obtained through Admit carry their validated text; the
	// executor runs exactly that text.
	sch, err := schema.Load()
	require.NoError(t, err)
	spec, err := grammar.New(sch)
	require.NoError(t, err)

	stmt, rej := spec.Admit("SELECT * FROM garmin_active_cal_data LIMIT 1")
	require.Nil(t, rej)
	assert.Equal(t, "SELECT * FROM garmin_active_cal_data LIMIT 1", stmt.Text())
	assert.False(t, stmt.IsZero())
}

func TestFailure_Unwrap(t *testing.T) {
	inner := context.DeadlineExceeded
	f := &Failure{Reason: "store unreachable", Err: inner}

	assert.ErrorIs(t, f, context.DeadlineExceeded)
	assert.Contains(t, f.Error(), "store unreachable")
}
