package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stewardship/internal/platform/config"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		parts  []string
		want   string
	}{
		{name: "configured prefix", prefix: "stewardship", parts: []string{"reconcile", "summary"}, want: "stewardship:reconcile:summary"},
		{name: "blank prefix falls back", prefix: "", parts: []string{"reconcile", "summary"}, want: "stewardship:reconcile:summary"},
		{name: "separators trimmed", prefix: "grace:", parts: []string{":reconcile:", "summary"}, want: "grace:reconcile:summary"},
		{name: "empty parts skipped", prefix: "grace", parts: []string{"", "summary"}, want: "grace:summary"},
		{name: "no parts", prefix: "grace", want: "grace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := wrap(redis.NewClient(&redis.Options{Addr: "localhost:0"}), config.RedisConfig{KeyPrefix: tt.prefix})
			t.Cleanup(func() { _ = c.Close() })
			assert.Equal(t, tt.want, c.Key(tt.parts...))
		})
	}
}

func TestSummaryTTL(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		c := wrap(redis.NewClient(&redis.Options{Addr: "localhost:0"}), config.RedisConfig{})
		t.Cleanup(func() { _ = c.Close() })
		assert.Equal(t, DefaultSummaryTTL, c.SummaryTTL())
	})
	t.Run("configured value wins", func(t *testing.T) {
		c := wrap(redis.NewClient(&redis.Options{Addr: "localhost:0"}), config.RedisConfig{SummaryTTL: time.Hour})
		t.Cleanup(func() { _ = c.Close() })
		assert.Equal(t, time.Hour, c.SummaryTTL())
	})
}

func TestNewWithoutURL(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}
