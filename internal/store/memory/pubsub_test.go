package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/kanban/internal/store/memory"
)

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPubSub(t *testing.T) {
	t.Parallel()

	t.Run("fan out to every subscriber of a channel", func(t *testing.T) {
		t.Parallel()

		ps := memory.NewPubSub()
		ctx := context.Background()

		a, cleanupA, err := ps.Subscribe(ctx, "board:default")
		require.NoError(t, err)
		defer cleanupA()
		b, cleanupB, err := ps.Subscribe(ctx, "board:default")
		require.NoError(t, err)
		defer cleanupB()
		other, cleanupOther, err := ps.Subscribe(ctx, "board:other")
		require.NoError(t, err)
		defer cleanupOther()

		require.NoError(t, ps.Publish(ctx, "board:default", []byte(`{"type":"task_created"}`)))

		assert.JSONEq(t, `{"type":"task_created"}`, string(receive(t, a)))
		assert.JSONEq(t, `{"type":"task_created"}`, string(receive(t, b)))
		select {
		case msg := <-other:
			t.Fatalf("unexpected message on other channel: %s", msg)
		default:
		}
	})

	t.Run("subscription is buffered", func(t *testing.T) {
		t.Parallel()

		ps := memory.NewPubSub()
		ch, cleanup, err := ps.Subscribe(context.Background(), "c")
		require.NoError(t, err)
		defer cleanup()

		assert.Equal(t, memory.SubscriberBuffer, cap(ch))
	})

	t.Run("cleanup closes the channel", func(t *testing.T) {
		t.Parallel()

		ps := memory.NewPubSub()
		ch, cleanup, err := ps.Subscribe(context.Background(), "c")
		require.NoError(t, err)

		cleanup()
		cleanup()
		_, ok := <-ch
		assert.False(t, ok)
		require.NoError(t, ps.Publish(context.Background(), "c", []byte("x")))
	})

	t.Run("context cancel closes the channel", func(t *testing.T) {
		t.Parallel()

		ps := memory.NewPubSub()
		ctx, cancel := context.WithCancel(context.Background())
		ch, _, err := ps.Subscribe(ctx, "c")
		require.NoError(t, err)

		cancel()
		require.Eventually(t, func() bool {
			select {
			case _, ok := <-ch:
				return !ok
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("close ends every subscription", func(t *testing.T) {
		t.Parallel()

		ps := memory.NewPubSub()
		ch, _, err := ps.Subscribe(context.Background(), "c")
		require.NoError(t, err)
		require.NoError(t, ps.Close())

		_, ok := <-ch
		assert.False(t, ok)

		late, _, err := ps.Subscribe(context.Background(), "c")
		require.NoError(t, err)
		_, ok = <-late
		assert.False(t, ok)
	})

	t.Run("slow subscriber does not block publish", func(t *testing.T) {
		t.Parallel()

		ps := memory.NewPubSub()
		_, cleanup, err := ps.Subscribe(context.Background(), "c")
		require.NoError(t, err)
		defer cleanup()

		done := make(chan struct{})
		go func() {
			for range 1000 {
				_ = ps.Publish(context.Background(), "c", []byte("x"))
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("publish blocked on a full subscriber")
		}
	})
}
