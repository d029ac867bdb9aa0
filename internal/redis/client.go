package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"order_engine/internal/events"

	"github.com/go-redis/redis/v8"
)

// OrderEventsChannel carries every committed order change.
const OrderEventsChannel = "orders:changes"

type Client struct {
	rdb *redis.Client
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// consumeQuota is the whole check-and-increment for one identity, executed
// atomically by Redis. Returns {allowed, order_count}.
var consumeQuota = redis.NewScript(`
local key = KEYS[1]
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local count = tonumber(redis.call('HGET', key, 'order_count') or '0')
local last = tonumber(redis.call('HGET', key, 'last_order_at') or '0')

if count == 0 or last < now - window then
	redis.call('HSET', key, 'order_count', 1, 'last_order_at', ARGV[3])
	redis.call('PEXPIRE', key, window)
	return {1, 1}
end

if count < max then
	count = redis.call('HINCRBY', key, 'order_count', 1)
	redis.call('HSET', key, 'last_order_at', ARGV[3])
	redis.call('PEXPIRE', key, window)
	return {1, count}
end

return {0, count}
`)

// ConsumeQuota applies the rolling-window counter stored under key.
func (c *Client) ConsumeQuota(ctx context.Context, key string, maxOrders int, window time.Duration, now time.Time) (bool, int64, error) {
	res, err := consumeQuota.Run(ctx, c.rdb, []string{key}, maxOrders, window.Milliseconds(), strconv.FormatInt(now.UnixMilli(), 10)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to run quota script: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, fmt.Errorf("unexpected quota script reply: %v", res)
	}
	allowed, _ := vals[0].(int64)
	count, _ := vals[1].(int64)
	return allowed == 1, count, nil
}

// Publish implements events.Publisher over Redis Pub/Sub.
func (c *Client) Publish(ctx context.Context, event events.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return c.rdb.Publish(ctx, OrderEventsChannel, payload).Err()
}

// Subscribe implements events.Subscriber over Redis Pub/Sub.
func (c *Client) Subscribe(ctx context.Context, onEvent func(events.OrderEvent), onError func(error)) (func(), error) {
	pubsub := c.rdb.Subscribe(ctx, OrderEventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", OrderEventsChannel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event events.OrderEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					if onError != nil {
						onError(fmt.Errorf("failed to unmarshal order event: %w", err))
					}
					continue
				}
				onEvent(event)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
