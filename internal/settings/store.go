package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists the singleton settings document.
type Store interface {
	// Get returns the current settings, persisting defaults on first access.
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}

const redisKey = "clinic:settings"

// RedisStore keeps settings as a JSON document in Redis.
type RedisStore struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRedisStore creates a Redis-backed settings store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client, now: time.Now}
}

func (s *RedisStore) Get(ctx context.Context) (*Settings, error) {
	data, err := s.redis.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		defaults := Default()
		defaults.CreatedAt = s.now().UTC()
		defaults.UpdatedAt = defaults.CreatedAt
		// SetNX so two first readers agree on one document.
		payload, err := json.Marshal(defaults)
		if err != nil {
			return nil, fmt.Errorf("settings: marshal defaults: %w", err)
		}
		created, err := s.redis.SetNX(ctx, redisKey, payload, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("settings: init defaults: %w", err)
		}
		if created {
			return defaults, nil
		}
		return s.Get(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("settings: get: %w", err)
	}

	var out Settings
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("settings: unmarshal: %w", err)
	}
	return &out, nil
}

func (s *RedisStore) Save(ctx context.Context, settings *Settings) error {
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = s.now().UTC()
	}
	settings.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, redisKey, data, 0).Err(); err != nil {
		return fmt.Errorf("settings: set: %w", err)
	}
	return nil
}

// MemoryStore keeps settings in process; used when Redis is not configured.
type MemoryStore struct {
	mu       sync.Mutex
	settings *Settings
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context) (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		s.settings = Default()
		s.settings.CreatedAt = s.now().UTC()
		s.settings.UpdatedAt = s.settings.CreatedAt
	}
	return s.settings.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = s.now().UTC()
	}
	settings.UpdatedAt = s.now().UTC()
	s.settings = settings.Clone()
	return nil
}
