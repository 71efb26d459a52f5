package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/cache"
)

// DefaultRedisPrefix namespaces dialogue keys.
const DefaultRedisPrefix = "nodedialogue:dialogue:"

// RedisStore keeps each dialogue as a Unity YAML string under prefix+name.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	scriptGUID string
	owned      bool
}

// RedisConfig configures [DialRedisStore].
type RedisConfig struct {
	Addr       string
	Prefix     string
	ScriptGUID string
}

// NewRedisStore wraps an existing client. Close leaves the client open.
func NewRedisStore(client *redis.Client, prefix, scriptGUID string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, scriptGUID: scriptGUID}
}

// DialRedisStore connects and verifies the connection with PING, retrying
// transient failures.
func DialRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	err := cache.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			return cache.Retryable(fmt.Errorf("%w: redis %s: %v", cache.ErrBackend, cfg.Addr, err))
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	s := NewRedisStore(client, cfg.Prefix, cfg.ScriptGUID)
	s.owned = true
	return s, nil
}

func (s *RedisStore) key(name string) string { return s.prefix + name }

func (s *RedisStore) Kind() string { return "redis" }

func (s *RedisStore) Create(ctx context.Context, name string, a *asset.Asset) (bool, error) {
	data, err := encodeUnity(a, s.scriptGUID)
	if err != nil {
		return false, err
	}
	ok, err := s.client.SetNX(ctx, s.key(name), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Put(ctx context.Context, name string, a *asset.Asset) error {
	data, err := encodeUnity(a, s.scriptGUID)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, name string) (*asset.Asset, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return asset.ReadUnity(bytes.NewReader(data))
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var names []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	n, err := s.client.Del(ctx, s.key(name)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return notFound(name)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

var _ Backend = (*RedisStore)(nil)
