package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/afeldman/sensorium/errs"
	"github.com/redis/go-redis/v9"
)

// RedisStore is the concrete Store backed by Redis, grounded on
// Mindburn-Labs-helm's pkg/kernel/limiter_redis.go RedisLimiterStore
// for client construction and on the sensor-redis reference crate for
// the SET/GET/SCAN access pattern.
type RedisStore struct {
	client *redis.Client
}

// RedisOptions configures a RedisStore. Addr is required; Password and
// DB are optional.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore constructs a RedisStore. It does not dial eagerly --
// the first real operation establishes the connection, matching
// go-redis's lazy-connect client.
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisStore{client: client}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping verifies connectivity, for host startup checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return wrapStoreErr("ping", "", err)
	}
	return nil
}

func (s *RedisStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: marshal %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return wrapStoreErr("set", key, err)
	}
	return nil
}

func (s *RedisStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, wrapStoreErr("get", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("store: unmarshal %q: %w: %v", key, errs.ErrDecode, err)
	}
	return true, nil
}

// ScanKeys lists every live key matching prefix+"*" using cursor-based
// SCAN rather than KEYS, so a large keyspace never blocks the Redis
// event loop the way a single KEYS call would.
func (s *RedisStore) ScanKeys(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	match := prefix + "*"
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, 256).Result()
		if err != nil {
			return nil, wrapStoreErr("scan", match, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return wrapStoreErr("del", key, err)
	}
	return nil
}
