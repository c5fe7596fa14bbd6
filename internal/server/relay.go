package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"

	"RoomBoard/internal/store"
)

const eventsChannel = "roomboard:events"

// RedisRelay shares change events between servers backed by the same redis.
// Publish goes out over pub/sub and Run feeds everything received into the
// local hub, including this server's own events.
type RedisRelay struct {
	rdb *redis.Client
	hub *Hub
}

var _ Notifier = (*RedisRelay)(nil)

func NewRedisRelay(rdb *redis.Client, hub *Hub) *RedisRelay {
	return &RedisRelay{rdb: rdb, hub: hub}
}

func (r *RedisRelay) Publish(ctx context.Context, ev store.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("relay %s: %w", ev.Type, err)
	}
	if err := r.rdb.Publish(ctx, eventsChannel, data).Err(); err != nil {
		return fmt.Errorf("relay %s: %w", ev.Type, err)
	}
	return nil
}

// Run subscribes until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, eventsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", eventsChannel, err)
	}
	log.Printf("[SERVER] Relaying events over redis channel %s", eventsChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev store.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[SERVER] Ignoring malformed event: %v", err)
				continue
			}
			r.hub.Broadcast(ev.RoomID, []byte(msg.Payload))
		}
	}
}
