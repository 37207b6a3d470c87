package board

import (
	"fmt"
	"strings"

	"github.com/gosuda/kanban/internal/domain"
)

// DragPayload is what a drag carries from drag-start to drop: the dragged
// task's id and its source column name, both as opaque strings.
type DragPayload struct {
	TaskID     string `json:"taskId"`
	FromColumn string `json:"fromColumn"`
}

// NewDragPayload builds the payload set on drag-start.
func NewDragPayload(taskID string, from domain.ColumnName) DragPayload {
	return DragPayload{TaskID: taskID, FromColumn: string(from)}
}

// Drop completes a drag onto column to. A drop back onto the source column
// changes nothing; otherwise the task is moved as by MoveTask.
func (s *Store) Drop(p DragPayload, to domain.ColumnName) error {
	if strings.TrimSpace(p.TaskID) == "" {
		return fmt.Errorf("board.Store.Drop: %w: missing task id", domain.ErrInvalidDrag)
	}

	from, err := domain.ParseColumn(p.FromColumn)
	if err != nil {
		return fmt.Errorf("board.Store.Drop: %w", err)
	}

	if from == to {
		return nil
	}

	return s.MoveTask(p.TaskID, from, to)
}
