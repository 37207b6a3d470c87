// Package taskapi serves the task-record API the board's gateway talks to.
package taskapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanban/internal/domain"
)

// TaskBody is the wire form of a record. Unknown fields are accepted and
// dropped so older clients that still send UI state keep working.
type TaskBody struct {
	_           struct{} `json:"-" additionalProperties:"true"`
	ID          string   `json:"id,omitempty" required:"false" maxLength:"200" doc:"Task ID; generated when empty"`
	Title       string   `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
	Description string   `json:"description" required:"false" doc:"Task description"`
	CreatedAt   string   `json:"createdAt" required:"false" doc:"Creation timestamp"`
	UpdatedAt   string   `json:"updatedAt" required:"false" doc:"Last update timestamp"`
}

type ListTasksOutput struct {
	Body []domain.Record
}

type CreateTaskInput struct {
	Body TaskBody
}

type TaskOutput struct {
	Body *domain.Record
}

type TaskIDInput struct {
	ID string `path:"id" doc:"Task ID"`
}

type ReplaceTaskInput struct {
	ID   string `path:"id" doc:"Task ID"`
	Body TaskBody
}

// Option configures the routes.
type Option func(*routes)

// WithClock overrides the time source used to fill missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *routes) { r.now = now }
}

type routes struct {
	now func() time.Time
}

func RegisterRoutes(api huma.API, repo domain.TaskRepository, opts ...Option) {
	r := &routes{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List all tasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, _ *struct{}) (*ListTasksOutput, error) {
		records, err := repo.List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tasks", err)
		}
		return &ListTasksOutput{Body: records}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		rec := r.record(input.Body, nil)
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}

		if err := repo.Create(ctx, &rec); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("task id already exists")
			}
			return nil, huma.Error500InternalServerError("failed to create task", err)
		}

		log.Debug().Str("task_id", rec.ID).Msg("task created")
		return &TaskOutput{Body: &rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task by ID",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		rec, err := repo.Get(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("task not found")
			}
			return nil, huma.Error500InternalServerError("failed to get task", err)
		}
		return &TaskOutput{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Replace a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ReplaceTaskInput) (*TaskOutput, error) {
		existing, err := repo.Get(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("task not found")
			}
			return nil, huma.Error500InternalServerError("failed to get task", err)
		}

		rec := r.record(input.Body, existing)
		rec.ID = input.ID
		if err := repo.Replace(ctx, &rec); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("task not found")
			}
			return nil, huma.Error500InternalServerError("failed to update task", err)
		}

		log.Debug().Str("task_id", rec.ID).Msg("task replaced")
		return &TaskOutput{Body: &rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete a task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *TaskIDInput) (*struct{}, error) {
		if err := repo.Delete(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("task not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete task", err)
		}

		log.Debug().Str("task_id", input.ID).Msg("task deleted")
		return nil, nil
	})
}

// record builds the stored form of body. Missing timestamps fall back to the
// existing record's, then to now.
func (r *routes) record(body TaskBody, existing *domain.Record) domain.Record {
	rec := domain.Record{
		ID:          body.ID,
		Title:       body.Title,
		Description: body.Description,
		CreatedAt:   body.CreatedAt,
		UpdatedAt:   body.UpdatedAt,
	}

	now := domain.FormatTimestamp(r.now())
	if rec.CreatedAt == "" {
		if existing != nil && existing.CreatedAt != "" {
			rec.CreatedAt = existing.CreatedAt
		} else {
			rec.CreatedAt = now
		}
	}
	if rec.UpdatedAt == "" {
		rec.UpdatedAt = now
	}
	return rec
}
