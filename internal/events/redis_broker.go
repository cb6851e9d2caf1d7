package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisBroker appends events to a Redis stream so every instance sees them,
// and relays the stream to its own local subscribers.
type RedisBroker struct {
	rdb    *redis.Client
	stream string
	maxLen int64
	local  *LocalBroker
}

func NewRedisBroker(rdb *redis.Client, stream string, maxLen int64) *RedisBroker {
	return &RedisBroker{rdb: rdb, stream: stream, maxLen: maxLen, local: NewLocalBroker()}
}

func (b *RedisBroker) Publish(ctx context.Context, ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: []interface{}{"type", string(ev.Type), "account_id", ev.AccountID, "payload", string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(accountID string) (<-chan models.Event, func()) {
	return b.local.Subscribe(accountID)
}

// Run tails the stream from its current end until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) {
	lastID := "$"
	for {
		if ctx.Err() != nil {
			return
		}
		streams, err := b.rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{b.stream, lastID},
			Count:   100,
			Block:   2 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Warn("event stream read failed", zap.String("stream", b.stream), zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		for _, s := range streams {
			for _, msg := range s.Messages {
				lastID = msg.ID
				b.relay(ctx, msg)
			}
		}
	}
}

func (b *RedisBroker) relay(ctx context.Context, msg redis.XMessage) {
	ev, err := decodeMessage(msg)
	if err != nil {
		logger.Warn("skipping malformed event", zap.String("stream_id", msg.ID), zap.Error(err))
		return
	}
	_ = b.local.Publish(ctx, ev)
}

func decodeMessage(msg redis.XMessage) (models.Event, error) {
	var ev models.Event
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return ev, errors.New("missing payload")
	}
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return ev, err
	}
	return ev, nil
}
