package board

import (
	"context"
	"time"

	"github.com/gosuda/kanban/internal/domain"
)

// Event types emitted after a store mutation or a settled remote call.
const (
	EventBoardLoaded    = "board_loaded"
	EventTaskCreated    = "task_created"
	EventEditingStarted = "editing_started"
	EventDraftUpdated   = "draft_updated"
	EventEditCancelled  = "edit_cancelled"
	EventTaskUpdated    = "task_updated"
	EventTaskDeleted    = "task_deleted"
	EventTaskMoved      = "task_moved"
	EventFormUpdated    = "form_updated"
	EventSyncFailed     = "sync_failed"
	EventSyncSettled    = "sync_settled"
)

// Event describes a board change for live subscribers.
type Event struct {
	Type     string            `json:"type"`
	TaskID   string            `json:"taskId,omitempty"`
	Column   domain.ColumnName `json:"column,omitempty"`
	ToColumn domain.ColumnName `json:"toColumn,omitempty"`
	Task     *domain.Task      `json:"task,omitempty"`
	Op       string            `json:"op,omitempty"`
	Error    string            `json:"error,omitempty"`
	Count    int               `json:"count,omitempty"`
	At       time.Time         `json:"at"`
}

// Publisher delivers board events to live subscribers.
// *ws.Hub satisfies this interface.
type Publisher interface {
	PublishBoardEvent(ctx context.Context, e Event) error
}

// SyncFailure describes a fire-and-forget gateway call that did not succeed.
// Local state has already been changed and is not rolled back.
type SyncFailure struct {
	Op     string
	TaskID string
	Err    error
	At     time.Time
}

// FailureHandler is told about every failed gateway call.
// *notify.Notifier satisfies this interface.
type FailureHandler interface {
	HandleSyncFailure(ctx context.Context, f SyncFailure)
}
