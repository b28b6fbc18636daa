package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("STEWARDSHIP_ADDR", "")
		t.Setenv("KAFKA_BROKERS", "")
		t.Setenv("TX_TIMEOUT", "")
		t.Setenv("SUMMARY_TTL", "")
		t.Setenv("REDIS_KEY_PREFIX", "")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 5*time.Second, cfg.TxTimeout)
		assert.Equal(t, 7*24*time.Hour, cfg.Redis.SummaryTTL)
		assert.Equal(t, "stewardship", cfg.Redis.KeyPrefix)
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.Equal(t, "stewardship.audit", cfg.Kafka.AuditTopic)
	})

	t.Run("splits broker list", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092 ")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	})

	t.Run("rejects malformed durations", func(t *testing.T) {
		t.Setenv("TX_TIMEOUT", "soon")

		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("rejects non-positive pool size", func(t *testing.T) {
		t.Setenv("REDIS_POOL_SIZE", "0")

		_, err := FromEnv()
		require.Error(t, err)
	})
}
