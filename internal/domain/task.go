package domain

import (
	"context"
	"time"
)

// TimestampLayout formats createdAt/updatedAt. Timestamps are display strings,
// not parsed back by the board.
const TimestampLayout = time.DateTime

// FormatTimestamp renders t in the board's human-readable layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Task is a unit of work as held by the board. IsEditing is UI state and never
// leaves the process; use Record for anything sent to the gateway.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	IsEditing   bool   `json:"isEditing"`
}

// Record returns the gateway representation of t.
func (t Task) Record() Record {
	return Record{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// Record is a task as stored by the remote task API.
type Record struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// Task converts a fetched record into a board task in the Viewing state.
func (r Record) Task() Task {
	return Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// TaskGateway is the remote task-record store the board keeps in sync.
type TaskGateway interface {
	ListTasks(ctx context.Context) ([]Record, error)
	CreateTask(ctx context.Context, r Record) error
	UpdateTask(ctx context.Context, id string, r Record) error
	DeleteTask(ctx context.Context, id string) error
}

// TaskRepository persists records for the reference task API.
type TaskRepository interface {
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Create(ctx context.Context, r *Record) error
	Replace(ctx context.Context, r *Record) error
	Delete(ctx context.Context, id string) error
}
