package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisDeliveryQueue is the per-room delivery bus on Redis streams.
// XADD preserves publish order; a consumer group plus XACK gives
// at-least-once handoff to the room worker.
type RedisDeliveryQueue struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisDeliveryQueue(log *slog.Logger, rdb *redis.Client) *RedisDeliveryQueue {
	return &RedisDeliveryQueue{rdb: rdb, log: log}
}

func (q *RedisDeliveryQueue) streamKey(roomID string) string {
	return "room-stream:" + roomID
}

func (q *RedisDeliveryQueue) Publish(ctx context.Context, roomID string, payload []byte) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.streamKey(roomID),
		MaxLen: 1000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Err()
}

// Subscribe blocks in a read loop until ctx is cancelled. The caller
// runs it in the room worker's goroutine; entries are handed to the
// handler one at a time so stream order is preserved.
func (q *RedisDeliveryQueue) Subscribe(
	ctx context.Context,
	roomID string,
	group string,
	handler func(ctx context.Context, messageID string, data []byte) error,
) error {
	topic := q.streamKey(roomID)
	err := q.rdb.XGroupCreateMkStream(ctx, topic, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	consumerName := uuid.NewString()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    group,
				Consumer: consumerName,
				Streams:  []string{topic, ">"},
				Count:    16,
				Block:    2 * time.Second,
			}).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					q.log.ErrorContext(ctx, "queue - subscribe - stream read failed", "stream", topic, "err", err)
				}
				continue
			}
			for _, stream := range res {
				for _, msg := range stream.Messages {
					raw, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					if err := handler(ctx, msg.ID, []byte(raw)); err != nil {
						q.log.ErrorContext(ctx, "queue - subscribe - handler failed", "stream", topic, "message_id", msg.ID, "err", err)
					}
				}
			}
		}
	}
}

func (q *RedisDeliveryQueue) Acknowledge(ctx context.Context, roomID, group, messageID string) error {
	return q.rdb.XAck(ctx, q.streamKey(roomID), group, messageID).Err()
}

func (q *RedisDeliveryQueue) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	return q.rdb.XDel(ctx, q.streamKey(roomID), messageID).Err()
}

func (q *RedisDeliveryQueue) DeleteStream(ctx context.Context, roomID string) error {
	return q.rdb.Del(ctx, q.streamKey(roomID)).Err()
}
