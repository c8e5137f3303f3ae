package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key; defaults to "mfgplan"
	Prefix string
}

// Store keeps explosion results in Redis as JSON with SET EX. Each
// dependency token has a set of dependent entry keys and a set of dependent
// structure facts so invalidation can find them.
type Store struct {
	rdb    *goredis.Client
	prefix string
}

// Connect dials Redis and verifies the connection
func Connect(opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, opts.Prefix), nil
}

// New wraps an existing client
func New(rdb *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "mfgplan"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

// Close releases the client
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) entryKey(key string) string { return s.prefix + ":explosion:" + key }
func (s *Store) depsKey(dep string) string { return s.prefix + ":deps:" + dep }
func (s *Store) structKey(bomID string) string { return s.prefix + ":structure:" + bomID }
func (s *Store) structDepsKey(dep string) string { return s.prefix + ":structdeps:" + dep }

// Get loads and decodes an entry
func (s *Store) Get(ctx context.Context, key string) (*entities.ExplosionResult, bool, error) {
	raw, err := s.rdb.Get(ctx, s.entryKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var result entities.ExplosionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("decode explosion %s: %w", key, err)
	}
	return &result, true, nil
}

// Set encodes and stores an entry and indexes it under each dependency
func (s *Store) Set(ctx context.Context, key string, result *entities.ExplosionResult, deps []string, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode explosion %s: %w", key, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(key), raw, ttl)
		for _, dep := range deps {
			pipe.SAdd(ctx, s.depsKey(dep), key)
			pipe.Expire(ctx, s.depsKey(dep), ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteDependents deletes every entry and structure fact indexed under dep
func (s *Store) DeleteDependents(ctx context.Context, dep string) error {
	keys, err := s.rdb.SMembers(ctx, s.depsKey(dep)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis smembers %s: %w", dep, err)
	}
	boms, err := s.rdb.SMembers(ctx, s.structDepsKey(dep)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis smembers structures %s: %w", dep, err)
	}
	toDelete := make([]string, 0, len(keys)+len(boms)+2)
	for _, k := range keys {
		toDelete = append(toDelete, s.entryKey(k))
	}
	for _, bomID := range boms {
		toDelete = append(toDelete, s.structKey(bomID))
	}
	toDelete = append(toDelete, s.depsKey(dep), s.structDepsKey(dep))
	if err := s.rdb.Del(ctx, toDelete...).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", dep, err)
	}
	return nil
}

// GetStructure returns the cached single/multi-level fact
func (s *Store) GetStructure(ctx context.Context, bomID string) (bool, bool, error) {
	v, err := s.rdb.Get(ctx, s.structKey(bomID)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("redis get structure %s: %w", bomID, err)
	}
	return v == "multi", true, nil
}

// SetStructure caches the single/multi-level fact and indexes it under deps
func (s *Store) SetStructure(ctx context.Context, bomID string, multiLevel bool, deps []string, ttl time.Duration) error {
	v := "single"
	if multiLevel {
		v = "multi"
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.structKey(bomID), v, ttl)
		for _, dep := range deps {
			pipe.SAdd(ctx, s.structDepsKey(dep), bomID)
			pipe.Expire(ctx, s.structDepsKey(dep), ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set structure %s: %w", bomID, err)
	}
	return nil
}
