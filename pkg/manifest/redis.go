package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key builds "<prefix>:manifest:<entity>:<timestamp>".
func Key(prefix, entity, timestamp string) string {
	parts := []string{strings.Trim(prefix, ":"), "manifest", entity, timestamp}
	return strings.Join(parts, ":")
}

// RedisConfig holds RedisStore configuration.
type RedisConfig struct {
	// Prefix namespaces every key.
	Prefix string

	// TTL of each manifest entry; zero keeps entries forever.
	TTL time.Duration

	// MaxEntries bounds the index list.
	MaxEntries int64
}

// DefaultRedisConfig returns the default RedisStore configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:     "rise",
		TTL:        30 * 24 * time.Hour,
		MaxEntries: 1000,
	}
}

// RedisStore keeps manifests in Redis with a newest-first index list.
type RedisStore struct {
	redis  *redis.Client
	config RedisConfig
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client, cfg RedisConfig) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rise"
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	return &RedisStore{
		redis:  redisClient,
		config: cfg,
	}
}

func (s *RedisStore) indexKey() string {
	return strings.Trim(s.config.Prefix, ":") + ":manifests"
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, m *Manifest) error {
	if err := m.validate(); err != nil {
		return err
	}

	data, err := json.Marshal(m)
	if err != nil {
		manifestErrorsTotal.WithLabelValues("marshal").Inc()
		return fmt.Errorf("marshal manifest: %w", err)
	}

	key := Key(s.config.Prefix, m.Entity, m.Timestamp)
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, key, data, s.config.TTL)
	pipe.LPush(ctx, s.indexKey(), key)
	pipe.LTrim(ctx, s.indexKey(), 0, s.config.MaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		manifestErrorsTotal.WithLabelValues("set").Inc()
		return fmt.Errorf("redis save manifest: %w", err)
	}

	manifestsSavedTotal.WithLabelValues("redis").Inc()
	return nil
}

// Get loads one manifest.
func (s *RedisStore) Get(ctx context.Context, entity, timestamp string) (*Manifest, error) {
	data, err := s.redis.Get(ctx, Key(s.config.Prefix, entity, timestamp)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("manifest %s/%s: %w", entity, timestamp, ErrNotFound)
		}
		manifestErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		manifestErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return &m, nil
}

// Latest returns up to n manifests, newest first. Index entries whose
// manifest expired are skipped.
func (s *RedisStore) Latest(ctx context.Context, n int64) ([]*Manifest, error) {
	if n <= 0 {
		return nil, nil
	}
	keys, err := s.redis.LRange(ctx, s.indexKey(), 0, n-1).Result()
	if err != nil {
		manifestErrorsTotal.WithLabelValues("list").Inc()
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		manifestErrorsTotal.WithLabelValues("list").Inc()
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	manifests := make([]*Manifest, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var m Manifest
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			continue
		}
		manifests = append(manifests, &m)
	}
	return manifests, nil
}
