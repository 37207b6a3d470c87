package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"

	"github.com/gosuda/kanban/internal/board"
	redisstore "github.com/gosuda/kanban/internal/store/redis"
)

// PubSub is the broker the hub fans events through.
// *redis.PubSub and *memory.PubSub satisfy this interface.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub manages WebSocket connections backed by pub/sub.
type Hub struct {
	pubsub         PubSub
	channel        string
	originPatterns []string
}

var _ board.Publisher = (*Hub)(nil) //nolint:gochecknoglobals // compile-time check

// NewHub creates a hub for one board. originPatterns are the extra hosts
// allowed to open a websocket; same-origin is always allowed.
func NewHub(pubsub PubSub, boardID string, originPatterns []string) *Hub {
	return &Hub{
		pubsub:         pubsub,
		channel:        redisstore.BoardChannel(boardID),
		originPatterns: originPatterns,
	}
}

// ServeBoard handles WebSocket connections for kanban board updates.
// Subscribes to channel "board:<boardID>" and forwards every event as a
// text frame.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Reads are only needed to observe the client closing.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.pubsub.Subscribe(ctx, h.channel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// PublishBoardEvent sends a board event to every connected client.
func (h *Hub) PublishBoardEvent(ctx context.Context, e board.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("ws.Hub.PublishBoardEvent: marshal: %w", err)
	}
	return h.Publish(ctx, h.channel, payload)
}

// Publish sends a raw payload to a channel.
func (h *Hub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := h.pubsub.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("ws.Hub.Publish: %w", err)
	}
	return nil
}
