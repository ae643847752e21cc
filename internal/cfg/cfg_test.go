package cfg

import (
	"testing"
	"time"

	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_USER", "shop")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "catalog")
	t.Setenv("ADMIN_TOKEN", "admin-token")
	t.Setenv("KAFKA_BROKERS", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	c, err := Load(logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, 8, c.Fingerprint.Bins)
	assert.Equal(t, 10, c.Fingerprint.TopK)
	assert.Equal(t, 5*time.Second, c.Fingerprint.FetchTimeout)
	assert.Equal(t, int64(15<<20), c.Fingerprint.FetchMaxBytes)
	assert.Zero(t, c.Fingerprint.FetchRPS)
	assert.Equal(t, 1, c.Fingerprint.BackfillWorkers)
	assert.True(t, c.Fingerprint.BackfillOnStart)

	assert.Equal(t, "8080", c.Http.Port)
	assert.Equal(t, "file://db/migrations", c.Db.MigrationsURL)
	assert.Equal(t, "admin-token", c.Admin.Token)
	assert.False(t, c.Kafka.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HIST_BINS", "4")
	t.Setenv("SEARCH_TOP_K", "3")
	t.Setenv("FETCH_TIMEOUT", "750ms")
	t.Setenv("FETCH_RPS", "2.5")
	t.Setenv("BACKFILL_WORKERS", "4")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("READ_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "4s")

	c, err := Load(logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, 4, c.Fingerprint.Bins)
	assert.Equal(t, 3, c.Fingerprint.TopK)
	assert.Equal(t, 750*time.Millisecond, c.Fingerprint.FetchTimeout)
	assert.InDelta(t, 2.5, c.Fingerprint.FetchRPS, 1e-9)
	assert.Equal(t, 4, c.Fingerprint.BackfillWorkers)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled())
	assert.Equal(t, 4*time.Second, c.Redis.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bins out of range", key: "HIST_BINS", value: "0"},
		{name: "bins not a number", key: "HIST_BINS", value: "eight"},
		{name: "top k", key: "SEARCH_TOP_K", value: "-1"},
		{name: "negative rps", key: "FETCH_RPS", value: "-2"},
		{name: "workers", key: "BACKFILL_WORKERS", value: "0"},
		{name: "backfill on start", key: "BACKFILL_ON_START", value: "maybe"},
		{name: "timeout", key: "FETCH_TIMEOUT", value: "soon"},
		{name: "missing admin token", key: "ADMIN_TOKEN", value: ""},
		{name: "missing db user", key: "POSTGRES_USER", value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(logger.Nop{})
			assert.Error(t, err)
		})
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("SOME_INT", "")
	v, err := parseIntEnv("SOME_INT", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	t.Setenv("SOME_INT", "x")
	_, err = parseIntEnv("SOME_INT", 7)
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
}
