package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/festquest/internal/festival"
)

// RedisRelay fans progress events out through a Redis channel so that
// subscribers connected to any instance receive them. Every instance runs
// the relay and feeds what it receives into its local Broker.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	broker  *Broker
	logger  *slog.Logger
}

func NewRedisRelay(rdb *redis.Client, channel string, broker *Broker, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		broker:  broker,
		logger:  logger.With("component", "redis_relay"),
	}
}

// Notify publishes events to Redis. If Redis is unreachable the events are
// delivered to local subscribers only.
func (r *RedisRelay) Notify(ctx context.Context, events []festival.Event) {
	for _, e := range events {
		raw, err := json.Marshal(e)
		if err != nil {
			r.logger.Error("encoding event", "type", e.Type, "error", err)
			continue
		}
		if err := r.rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
			r.logger.Warn("redis publish failed, delivering locally",
				"user_id", e.UserID, "type", e.Type, "error", err)
			r.broker.Publish(e)
		}
	}
}

// Run subscribes to the channel and forwards messages to the local broker
// until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Receive confirms the subscription before events are relied on.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}
	r.logger.Info("relaying events", "channel", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var e festival.Event
			if err := json.Unmarshal([]byte(m.Payload), &e); err != nil {
				r.logger.Warn("bad relay payload", "error", err)
				continue
			}
			r.broker.Publish(e)
		}
	}
}
