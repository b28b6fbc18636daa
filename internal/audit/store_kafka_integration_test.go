//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"stewardship/internal/audit"
	"stewardship/pkg/testutil/containers"
)

func TestKafkaStoreProducesKeyedEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	kafka := containers.GetManager().GetKafka(t)
	topic := "stewardship.audit.test"

	producer := kafka.Client(t)
	require.NoError(t, audit.EnsureTopic(ctx, producer, topic, 1, 1))
	// A second call must tolerate the existing topic.
	require.NoError(t, audit.EnsureTopic(ctx, producer, topic, 1, 1))

	store := audit.NewKafkaStore(producer, topic)
	event := audit.Event{
		Timestamp: time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC),
		Action:    audit.ActionEnvelopeBatchSubmitted,
		Subject:   "batch-42",
		ActorID:   "counter",
	}
	require.NoError(t, store.Append(ctx, event))

	consumer := kafka.Client(t, kgo.ConsumeTopics(topic), kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "batch-42", string(records[0].Key))
	require.Equal(t, "action", records[0].Headers[0].Key)

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, event.Action, got.Action)
	require.Equal(t, event.ActorID, got.ActorID)
}
