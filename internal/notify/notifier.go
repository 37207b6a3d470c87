// Package notify reports failed gateway calls to operators.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/gosuda/kanban/internal/board"
)

// SlackAPI abstracts the subset of the Slack client used by Notifier.
// *slack.Client satisfies this interface.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSlack posts every reported failure to channelID.
func WithSlack(api SlackAPI, channelID string) Option {
	return func(n *Notifier) {
		n.slack = api
		n.channel = channelID
	}
}

// WithRateLimit caps Slack posts; failures over the limit are only logged.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(n *Notifier) { n.limiter = rate.NewLimiter(limit, burst) }
}

// Notifier logs failed gateway calls and optionally forwards them to Slack.
type Notifier struct {
	boardID string
	slack   SlackAPI
	channel string
	limiter *rate.Limiter
}

// Compile-time interface check.
var _ board.FailureHandler = (*Notifier)(nil) //nolint:gochecknoglobals // compile-time check

// New creates a Notifier for boardID. Without WithSlack it only logs.
func New(boardID string, opts ...Option) *Notifier {
	n := &Notifier{
		boardID: boardID,
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// HandleSyncFailure implements board.FailureHandler. It never returns an
// error; a failed Slack post is logged and dropped.
func (n *Notifier) HandleSyncFailure(ctx context.Context, f board.SyncFailure) {
	log.Error().
		Err(f.Err).
		Str("board_id", n.boardID).
		Str("op", f.Op).
		Str("task_id", f.TaskID).
		Time("at", f.At).
		Msg("task change not saved remotely")

	if n.slack == nil || n.channel == "" {
		return
	}
	if !n.limiter.Allow() {
		log.Debug().Str("task_id", f.TaskID).Msg("sync failure notification rate limited")
		return
	}

	if err := n.post(ctx, f); err != nil {
		log.Warn().Err(err).Msg("sync failure notification")
	}
}

func (n *Notifier) post(ctx context.Context, f board.SyncFailure) error {
	blocks := BuildSyncFailureBlocks(n.boardID, f)
	_, _, err := n.slack.PostMessageContext(ctx, n.channel,
		slacklib.MsgOptionText(summary(n.boardID, f), false),
		slacklib.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("notify.Notifier.post: %w", err)
	}
	return nil
}

func summary(boardID string, f board.SyncFailure) string {
	return fmt.Sprintf("Board %s: %s of task %s was not saved remotely", boardID, f.Op, f.TaskID)
}
