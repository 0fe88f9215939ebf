package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ViewCache is a JSON-backed Redis cache for one read model type T. Entries
// live under "<namespace>:<id>" and expire after ttl (0 keeps them).
type ViewCache[T any] struct {
	client    *goredis.Client
	namespace string
	ttl       time.Duration
}

func NewViewCache[T any](client *goredis.Client, namespace string, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, namespace: namespace, ttl: ttl}
}

func (c *ViewCache[T]) key(id string) string {
	return c.namespace + ":" + id
}

// Get returns the cached view for id. Any miss, Redis failure or undecodable
// entry reports false so the caller falls back to the store; corrupt entries
// are removed.
func (c *ViewCache[T]) Get(ctx context.Context, id string) (*T, bool) {
	key := c.key(id)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("view cache read failed")
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dropping undecodable view cache entry")
		c.client.Del(ctx, key)
		return nil, false
	}
	return &v, true
}

// Set stores value for id. Failures are logged; the store stays authoritative.
func (c *ViewCache[T]) Set(ctx context.Context, id string, value *T) {
	key := c.key(id)
	data, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("view cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("view cache write failed")
	}
}

func (c *ViewCache[T]) Delete(ctx context.Context, id string) {
	key := c.key(id)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("view cache delete failed")
	}
}
