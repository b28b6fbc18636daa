package audit

import (
	"context"
	"log/slog"

	"stewardship/pkg/platform/circuit"
)

// FallbackStore sends events to primary and diverts them to fallback while
// the primary is failing. Divert decisions are made by the breaker.
type FallbackStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewFallbackStore(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *FallbackStore {
	return &FallbackStore{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (s *FallbackStore) Append(ctx context.Context, event Event) error {
	if !s.breaker.Allow() {
		return s.fallback.Append(ctx, event)
	}
	err := s.primary.Append(ctx, event)
	if err == nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed && s.logger != nil {
			s.logger.InfoContext(ctx, "audit sink recovered", "breaker", s.breaker.Name())
		}
		return nil
	}
	if _, change := s.breaker.RecordFailure(); change.Opened && s.logger != nil {
		s.logger.WarnContext(ctx, "audit sink failing, diverting events", "breaker", s.breaker.Name(), "error", err)
	}
	return s.fallback.Append(ctx, event)
}
