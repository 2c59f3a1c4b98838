// Package pubsub fans freshly fetched prices out over Redis so downstream
// consumers (bots, dashboards) can react without polling the database.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alirezadp10/market-trends/internal/models"
)

const (
	// PriceChannel carries one JSON message per published point.
	PriceChannel = "markettrends:prices"
	// PriceStream keeps a capped history of published points.
	PriceStream = "markettrends:prices:stream"

	maxStreamLen = 1000
)

// RedisPublisher publishes price points to Redis pub/sub and a stream.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to Redis at addr.
func NewRedisPublisher(addr string) *RedisPublisher {
	return &RedisPublisher{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Ping verifies the connection.
func (r *RedisPublisher) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisPublisher) Close() error {
	return r.client.Close()
}

// PublishPoints publishes each point to the pub/sub channel and appends it
// to the capped stream.
func (r *RedisPublisher) PublishPoints(ctx context.Context, points []models.PricePoint) error {
	for i := range points {
		data, err := json.Marshal(&points[i])
		if err != nil {
			return fmt.Errorf("failed to marshal price point: %w", err)
		}
		if err := r.client.Publish(ctx, PriceChannel, string(data)).Err(); err != nil {
			return fmt.Errorf("failed to publish to Redis: %w", err)
		}
		err = r.client.XAdd(ctx, &redis.XAddArgs{
			Stream: PriceStream,
			MaxLen: maxStreamLen,
			Approx: true,
			Values: map[string]interface{}{
				"market": points[i].MarketType,
				"data":   string(data),
			},
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to add to Redis stream: %w", err)
		}
	}
	return nil
}
