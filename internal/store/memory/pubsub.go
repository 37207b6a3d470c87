package memory

import (
	"context"
	"sync"
)

// SubscriberBuffer is how many undelivered messages a subscription holds.
// The Redis broker uses the same size.
const SubscriberBuffer = 64

// PubSub is a single-process broker with the same shape as the Redis one.
// Slow subscribers drop messages instead of blocking publishers.
type PubSub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		close(s.ch)
	})
}

func NewPubSub() *PubSub {
	return &PubSub{subs: make(map[string]map[*subscriber]struct{})}
}

func (ps *PubSub) Publish(_ context.Context, channel string, payload []byte) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for sub := range ps.subs[channel] {
		msg := append([]byte(nil), payload...)
		select {
		case sub.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a message channel that is closed when ctx ends, cleanup is
// called, or the broker is closed.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := &subscriber{ch: make(chan []byte, SubscriberBuffer), done: make(chan struct{})}

	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		sub.close()
		return sub.ch, func() {}, nil
	}
	if ps.subs[channel] == nil {
		ps.subs[channel] = make(map[*subscriber]struct{})
	}
	ps.subs[channel][sub] = struct{}{}
	ps.mu.Unlock()

	cleanup := func() { ps.remove(channel, sub) }

	go func() {
		select {
		case <-ctx.Done():
			cleanup()
		case <-sub.done:
		}
	}()

	return sub.ch, cleanup, nil
}

func (ps *PubSub) remove(channel string, sub *subscriber) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if set, ok := ps.subs[channel]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(ps.subs, channel)
		}
	}
	sub.close()
}

func (ps *PubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.closed = true
	for channel, set := range ps.subs {
		for sub := range set {
			sub.close()
		}
		delete(ps.subs, channel)
	}
	return nil
}
