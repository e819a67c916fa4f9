// Package cache is the best-effort caching facade (L10) sitting in front of
// the store, grounded on raito's redis/go-redis/v9 wiring
// (internal/http/router.go's redis.ParseURL/redis.NewClient) and spec.md
// §6's TTL table and pattern-invalidation contract. Every method swallows
// its own errors and logs at warn level — cache unavailability is never
// fatal to a caller.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Kind selects the TTL bucket a key belongs to.
type Kind int

const (
	KindSession Kind = iota
	KindJob
	KindMetadata
	KindScore
	KindSearchResult
	KindIntent
)

var ttlByKind = map[Kind]time.Duration{
	KindSession:      time.Hour,
	KindJob:          time.Hour,
	KindMetadata:     24 * time.Hour,
	KindScore:        24 * time.Hour,
	KindSearchResult: 5 * time.Minute,
	KindIntent:       time.Hour,
}

// Cache is the facade the crawl pipeline depends on. Every method is
// best-effort: a failure is logged and reported as a cache miss, never
// returned as an error to the caller.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, kind Kind, value any)
	InvalidatePattern(ctx context.Context, pattern string)
}

// Redis implements Cache on top of a redis/go-redis/v9 client.
type Redis struct {
	client *redis.Client
}

// NewRedis builds a Redis-backed Cache from a redis:// connection URL.
func NewRedis(redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opt)}, nil
}

func (r *Redis) Get(ctx context.Context, key string, dest any) bool {
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache value decode failed")
		return false
	}
	return true
}

func (r *Redis) Set(ctx context.Context, key string, kind Kind, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache value encode failed")
		return
	}
	if err := r.client.Set(ctx, key, encoded, ttlByKind[kind]).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// InvalidatePattern drops every key matching pattern (e.g. "*:example.com:*")
// via SCAN+DEL, never DEL with wildcards directly (which go-redis doesn't
// support and which would block on a large keyspace with KEYS).
func (r *Redis) InvalidatePattern(ctx context.Context, pattern string) {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("cache scan failed")
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				log.Warn().Err(err).Str("pattern", pattern).Msg("cache invalidate failed")
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
