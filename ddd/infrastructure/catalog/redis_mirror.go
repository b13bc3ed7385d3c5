package catalog

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisMirror publishes the current manifest version to a shared key so
// sibling instances and external dashboards can observe it. A nil client
// turns every call into a no-op.
type RedisMirror struct {
	client *redis.Client
	key    string
}

func NewRedisMirror(client *redis.Client, key string) *RedisMirror {
	return &RedisMirror{client: client, key: key}
}

func (m *RedisMirror) Publish(ctx context.Context, version int64) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Set(ctx, m.key, strconv.FormatInt(version, 10), 0).Err()
}
