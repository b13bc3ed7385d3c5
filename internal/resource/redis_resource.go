package resource

import (
	"sync"

	"github.com/redis/go-redis/v9"

	"signage-service/pkg/config"
	"signage-service/pkg/redisclient"
)

var (
	redisResourceOnce sync.Once
	redisSingleton    *RedisResource
)

// RedisResource manages the lifecycle of the shared redis client.
type RedisResource struct {
	client *redisclient.Client
}

// DefaultRedisResource returns the global redis resource instance.
func DefaultRedisResource() *RedisResource {
	redisResourceOnce.Do(func() {
		redisSingleton = &RedisResource{}
	})
	return redisSingleton
}

// MustOpen establishes the redis connection using global configuration.
func (r *RedisResource) MustOpen() {
	if r.client != nil {
		return
	}

	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before redis resource")
	}

	client, err := redisclient.New(cfg.Redis)
	if err != nil {
		panic("connect redis: " + err.Error())
	}

	r.client = client
}

// Close tidies up the underlying redis client.
func (r *RedisResource) Close() {
	if r.client != nil {
		_ = r.client.Close()
	}
}

// Client exposes the raw go-redis client, or nil when disabled.
func (r *RedisResource) Client() *redis.Client {
	if r.client == nil {
		return nil
	}
	return r.client.Raw()
}
