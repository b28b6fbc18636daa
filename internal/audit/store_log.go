package audit

import (
	"context"
	"log/slog"
)

// LogStore writes events to a structured logger. Used when no broker is configured.
type LogStore struct {
	logger *slog.Logger
}

func NewLogStore(logger *slog.Logger) *LogStore {
	return &LogStore{logger: logger}
}

func (s *LogStore) Append(ctx context.Context, event Event) error {
	attrs := []any{
		"action", string(event.Action),
		"subject", event.Subject,
		"timestamp", event.Timestamp,
	}
	if event.ActorID != "" {
		attrs = append(attrs, "actor_id", event.ActorID)
	}
	for k, v := range event.Attributes {
		attrs = append(attrs, k, v)
	}
	s.logger.InfoContext(ctx, "audit event", attrs...)
	return nil
}
