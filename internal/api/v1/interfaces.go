package v1

import (
	"context"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
)

// BoardStore abstracts the board state operations for handler testing.
// *board.Store satisfies this interface.
type BoardStore interface {
	Load(ctx context.Context) error
	View() board.View
	SetForm(title, description string)
	SubmitForm() (domain.Task, error)
	AddTask(title, description string) (domain.Task, error)
	StartEditing(taskID string, column domain.ColumnName) error
	UpdateDraft(taskID string, column domain.ColumnName, title, description string) error
	SaveEdit(taskID string, column domain.ColumnName, title, description string) (domain.Task, error)
	CancelEdit(taskID string, column domain.ColumnName) error
	DeleteTask(taskID string, column domain.ColumnName) error
	MoveTask(taskID string, from, to domain.ColumnName) error
	Drop(p board.DragPayload, to domain.ColumnName) error
}
