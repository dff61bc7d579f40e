package streaming

import (
	"context"
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/redis/go-redis/v9"
)

// Redis is a Broker backed by Redis pub/sub.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the Redis server at addr, a redis:// URL or host:port.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Publish(ctx context.Context, channel string, p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return r.client.Publish(ctx, channel, data).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
