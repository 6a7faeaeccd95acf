// Package dedup keeps the set of message ids seen by the ingest engine.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"github.com/ibs-source/edge-gateway/internal/config"
	"github.com/ibs-source/edge-gateway/internal/log"
	"github.com/ibs-source/edge-gateway/internal/redis"
)

// Store is a process-lifetime set of message ids. Implementations are safe for concurrent use.
type Store interface {
	// Seen reports whether id was recorded before
	Seen(ctx context.Context, id string) (bool, error)
	// Record inserts id
	Record(ctx context.Context, id string) error
	// CheckAndRecord inserts id and reports whether it was already present, atomically
	CheckAndRecord(ctx context.Context, id string) (bool, error)
	// Len returns the number of recorded ids
	Len(ctx context.Context) (int, error)
	// Close releases backend resources
	Close() error
}

// MemoryStore is a mutex-guarded map without eviction
type MemoryStore struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

// Seen implements Store
func (s *MemoryStore) Seen(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok, nil
}

// Record implements Store
func (s *MemoryStore) Record(_ context.Context, id string) error {
	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()
	return nil
}

// CheckAndRecord implements Store
func (s *MemoryStore) CheckAndRecord(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return true, nil
	}
	s.ids[id] = struct{}{}
	return false, nil
}

// Len implements Store
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids), nil
}

// Close implements Store
func (s *MemoryStore) Close() error { return nil }

// RedisStore keeps ids in a Redis set shared by every gateway instance
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a connected Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Seen implements Store
func (s *RedisStore) Seen(ctx context.Context, id string) (bool, error) {
	return s.client.IsMember(ctx, id)
}

// Record implements Store
func (s *RedisStore) Record(ctx context.Context, id string) error {
	_, err := s.client.Add(ctx, id)
	return err
}

// CheckAndRecord implements Store
func (s *RedisStore) CheckAndRecord(ctx context.Context, id string) (bool, error) {
	return s.client.Add(ctx, id)
}

// Len implements Store
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx)
	return int(n), err
}

// Close implements Store
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Open creates the store selected by cfg.Backend
func Open(cfg *config.DedupConfig, redisCfg *config.RedisConfig, logger *log.Logger) (Store, error) {
	switch cfg.Backend {
	case "", config.DedupBackendMemory:
		return NewMemoryStore(), nil
	case config.DedupBackendRedis:
		client, err := redis.NewClient(redisCfg, logger)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client), nil
	}
	return nil, fmt.Errorf("unknown dedup backend %q", cfg.Backend)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
