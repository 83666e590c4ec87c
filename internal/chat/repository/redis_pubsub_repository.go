package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// UserChannel redis channel carrying pushes for one identity's room
func UserChannel(identity string) string {
	return "chat:user:" + identity
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 將 message 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, message domain.RelayEvent) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe 訂閱 channel，收到訊息後呼叫 handler 處理。
// It returns once redis confirmed the subscription; the returned func stops it.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(ev domain.RelayEvent)) (func(), error) {
	sub := r.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var ev domain.RelayEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					logger.Log.Error("pubsub decode", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(ev)
			case <-subCtx.Done():
				logger.Log.Debug("pubsub close", zap.String("channel", channel))
				return
			}
		}
	}()
	return cancel, nil
}
