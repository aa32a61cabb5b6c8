// Package checklist persists each user's personal checklist as one JSON
// document in a key-value store (Redis, or memory when Redis is absent).
package checklist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

// ErrMiss means the key holds no value.
var ErrMiss = errors.New("checklist: key not found")

// KV is the minimal key-value contract, swappable in tests.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKV is a KV over go-redis.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// MemoryKV keeps values in process memory. TTLs are ignored.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Store implements port.ChecklistStore.
type Store struct {
	kv     KV
	logger *zap.Logger
}

func NewStore(kv KV, logger *zap.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

func key(userID string) string {
	return "mir:checklist:" + userID
}

// GetChecklist returns the stored checklist, or an empty one when nothing
// is stored or the document cannot be decoded.
func (s *Store) GetChecklist(ctx context.Context, userID string) (*domain.Checklist, error) {
	raw, err := s.kv.Get(ctx, key(userID))
	if errors.Is(err, ErrMiss) {
		return &domain.Checklist{Items: []domain.ChecklistItem{}}, nil
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "checklist", Err: err}
	}

	var c domain.Checklist
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		s.logger.Warn("checklist: stored document undecodable, starting empty",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return &domain.Checklist{Items: []domain.ChecklistItem{}}, nil
	}
	if c.Items == nil {
		c.Items = []domain.ChecklistItem{}
	}
	return &c, nil
}

func (s *Store) SaveChecklist(ctx context.Context, userID string, c *domain.Checklist) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, key(userID), string(data), 0); err != nil {
		return &domain.ErrExternalService{Service: "checklist", Err: err}
	}
	return nil
}
