package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/geoquest/internal/geoquest"
)

// Channel is the Redis pub/sub channel shared by all instances.
const Channel = "geoquest:events"

// RedisRelay publishes events through Redis so that every instance behind a
// load balancer delivers them to its own local subscribers.
type RedisRelay struct {
	rdb    *redis.Client
	local  *Broker
	logger *slog.Logger
}

func NewRedisRelay(rdb *redis.Client, local *Broker, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{rdb: rdb, local: local, logger: logger}
}

// Publish sends e to Redis. If Redis is unreachable the event is delivered
// locally only.
func (r *RedisRelay) Publish(ctx context.Context, e geoquest.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := r.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		r.logger.Warn("redis publish failed, delivering locally", "type", e.Type, "game_id", e.GameID, "error", err)
		r.local.deliver(e.GameID, data)
	}
}

// Run forwards events from Redis to the local broker until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", Channel, err)
	}
	r.logger.Info("event relay subscribed", "channel", Channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e geoquest.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				r.logger.Warn("dropping malformed event", "error", err)
				continue
			}
			r.local.deliver(e.GameID, []byte(msg.Payload))
		}
	}
}
