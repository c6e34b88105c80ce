package eventsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "tapestry.external_events."

// RedisSource bridges external events across processes through Redis
// pub/sub. The API process publishes webhook deliveries; engine
// processes subscribe on behalf of waiting nodes.
type RedisSource struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisSource(ctx context.Context, logger *slog.Logger, redisURL string) (*RedisSource, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisSource{
		client: client,
		logger: logger.With("module", "eventsource.redis"),
	}, nil
}

func (r *RedisSource) Subscribe(ctx context.Context, eventName string) (<-chan map[string]any, func(), error) {
	pubsub := r.client.Subscribe(ctx, channelPrefix+eventName)

	// Force the subscription to be established before returning so
	// publishes after Subscribe are never missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()

		return nil, nil, fmt.Errorf("subscribe %s: %w", eventName, err)
	}

	out := make(chan map[string]any, 16)

	go func() {
		defer close(out)

		for msg := range pubsub.Channel() {
			var payload map[string]any
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				r.logger.Warn("discarding malformed event payload",
					"event_name", eventName, "error", err)

				continue
			}

			select {
			case out <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
	}

	return out, cancel, nil
}

func (r *RedisSource) Publish(ctx context.Context, eventName string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	return r.client.Publish(ctx, channelPrefix+eventName, data).Err()
}

func (r *RedisSource) Close() error {
	return r.client.Close()
}
