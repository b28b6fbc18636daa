package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stewardship/pkg/platform/circuit"
)

type flakyStore struct {
	err   error
	calls int
	InMemoryStore
}

func (f *flakyStore) Append(ctx context.Context, event Event) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return f.InMemoryStore.Append(ctx, event)
}

func TestFallbackStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC)
	primary := &flakyStore{err: errors.New("broker down")}
	fallback := NewInMemoryStore()
	breaker := circuit.New("audit",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	store := NewFallbackStore(primary, fallback, breaker, nil)
	event := Event{Action: ActionStatementImported, Subject: "run-1"}

	for range 3 {
		require.NoError(t, store.Append(ctx, event))
	}
	assert.Equal(t, 2, primary.calls, "breaker stops calling the primary once open")
	assert.Len(t, fallback.ListByAction(ActionStatementImported), 3)
	assert.True(t, breaker.IsOpen())

	primary.err = nil
	now = now.Add(time.Minute)
	require.NoError(t, store.Append(ctx, event))
	assert.False(t, breaker.IsOpen())
	assert.Len(t, primary.ListByAction(ActionStatementImported), 1)
	assert.Len(t, fallback.ListByAction(ActionStatementImported), 3)
}
