// Package redis carries board events between server processes over Redis
// pub/sub.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gosuda/kanban/internal/store/memory"
)

// PubSub publishes and subscribes to Redis channels.
type PubSub struct {
	client *redis.Client
}

// New connects to the Redis server at addr and checks it answers PING.
func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

// Close releases the connection pool.
func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

// Publish sends payload to every subscriber of channel.
func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// Subscribe returns the payloads published to channel from now on. It
// returns only once Redis has confirmed the subscription, so nothing
// published after it returns is missed. The channel closes when ctx is done
// or the subscription ends; cancel releases the subscription.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)

	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe: confirm %s: %w", channel, err)
	}

	out := make(chan []byte, memory.SubscriberBuffer)
	go forward(ctx, sub.Channel(), out)

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}

// forward copies payloads from in to out until either side stops.
func forward(ctx context.Context, in <-chan *redis.Message, out chan<- []byte) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

// BoardChannel returns the Redis channel name for a board's event stream.
func BoardChannel(boardID string) string {
	return "board:" + boardID
}
