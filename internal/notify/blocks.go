package notify

import (
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
)

// BuildSyncFailureBlocks builds Slack Block Kit blocks for a failed gateway call.
func BuildSyncFailureBlocks(boardID string, f board.SyncFailure) []slacklib.Block {
	text := fmt.Sprintf("*Board:* %s\n*Task:* `%s`\n*Operation:* %s", boardID, f.TaskID, f.Op)
	section := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, text, false, false),
		nil,
		nil,
	)

	reason := "unknown error"
	if f.Err != nil {
		reason = f.Err.Error()
	}
	meta := slacklib.NewContextBlock("",
		slacklib.NewTextBlockObject(slacklib.PlainTextType, reason, false, false),
		slacklib.NewTextBlockObject(slacklib.PlainTextType, domain.FormatTimestamp(f.At), false, false),
	)

	return []slacklib.Block{section, meta}
}
