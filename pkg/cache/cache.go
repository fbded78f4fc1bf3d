package cache

import (
	"context"
	"time"

	"chaintask-client/pkg/config"

	"github.com/redis/rueidis"
	"github.com/rs/zerolog/log"
)

// Cache is an optional redis-backed store for the last-fetched on-chain
// snapshot. It absorbs bursts of realtime-triggered refetches; the view is
// never fresher than the last fetch, so a short TTL is safe. All methods are
// nil-receiver safe: a disabled cache behaves like a permanent miss.
type Cache struct {
	client rueidis.Client
}

// New connects to redis using the configured address, or returns nil when no
// REDIS_HOST is set.
func New(cfg *config.Config) (*Cache, error) {
	addr := cfg.RedisAddress()
	if addr == "" {
		log.Debug().Msg("Snapshot cache disabled, no REDIS_HOST configured")
		return nil, nil
	}

	clientOpts := rueidis.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	}
	if cfg.RedisUsername != "" {
		clientOpts.Username = cfg.RedisUsername
	}
	if cfg.RedisPassword != "" {
		clientOpts.Password = cfg.RedisPassword
	}

	client, err := rueidis.NewClient(clientOpts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, err
	}

	log.Info().Str("address", addr).Msg("Connected to redis snapshot cache")
	return &Cache{client: client}, nil
}

func (c *Cache) SetWithExpire(ctx context.Context, key string, value string, expiration time.Duration) error {
	if c == nil {
		return nil
	}
	err := c.client.Do(ctx, c.client.B().Set().Key(key).Value(value).Ex(expiration).Build()).Error()
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to write to redis")
		return err
	}
	return nil
}

// Get returns the cached value, or "" on a miss.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	if c == nil {
		return "", nil
	}
	val, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).ToString()
	if rueidis.IsRedisNil(err) {
		return "", nil
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to read from redis")
		return "", err
	}
	return val, nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Do(ctx, c.client.B().Del().Key(keys...).Build()).Error()
}

func (c *Cache) Shutdown() {
	if c == nil {
		return
	}
	c.client.Close()
	log.Info().Msg("Closed redis connection")
}
