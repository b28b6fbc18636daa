package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "stewardship/pkg/domain"
	"stewardship/pkg/platform/sentinel"
)

// SummaryStore keeps summaries for later review. Get returns
// sentinel.ErrNotFound for unknown or expired runs.
type SummaryStore interface {
	Save(ctx context.Context, summary Summary) error
	Get(ctx context.Context, runID id.ImportRunID) (*Summary, error)
}

type entry struct {
	summary   Summary
	expiresAt time.Time
}

// InMemoryStore is a process-local SummaryStore with the same expiry
// behaviour as the Redis store.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.ImportRunID]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.ImportRunID]entry), ttl: ttl, now: time.Now}
}

func (s *InMemoryStore) Save(_ context.Context, summary Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{summary: summary}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[summary.RunID] = e
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, runID id.ImportRunID) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[runID]
	if !ok || (!e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)) {
		return nil, sentinel.ErrNotFound
	}
	out := e.summary
	return &out, nil
}

const defaultSummaryNamespace = "reconcile:summary"

// RedisStore caches summaries as JSON with a TTL. Keys are
// "<namespace>:<run id>".
type RedisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisStore keys summaries under namespace; empty selects
// "reconcile:summary".
func NewRedisStore(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	if namespace == "" {
		namespace = defaultSummaryNamespace
	}
	return &RedisStore{client: client, namespace: namespace, ttl: ttl}
}

func (s *RedisStore) key(runID id.ImportRunID) string {
	return s.namespace + ":" + runID.String()
}

func (s *RedisStore) Save(ctx context.Context, summary Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return s.client.Set(ctx, s.key(summary.RunID), payload, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, runID id.ImportRunID) (*Summary, error) {
	payload, err := s.client.Get(ctx, s.key(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	var out Summary
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &out, nil
}
