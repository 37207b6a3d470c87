package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
)

type BoardOutput struct {
	Body board.View
}

type FormInput struct {
	Body struct {
		Title       string `json:"title" required:"false" maxLength:"500" doc:"New task title as typed"`
		Description string `json:"description" required:"false" doc:"New task description as typed"`
	}
}

type AddTaskInput struct {
	Body struct {
		Title       string `json:"title" maxLength:"500" doc:"Task title; must not be blank"`
		Description string `json:"description" required:"false" doc:"Task description"`
	}
}

type TaskRefInput struct {
	Column string `path:"column" doc:"Column key (todo, in_progress, done) or name"`
	ID     string `path:"id" doc:"Task ID"`
}

type TaskFieldsInput struct {
	Column string `path:"column" doc:"Column key (todo, in_progress, done) or name"`
	ID     string `path:"id" doc:"Task ID"`
	Body   struct {
		Title       string `json:"title" maxLength:"500" doc:"Task title"`
		Description string `json:"description" required:"false" doc:"Task description"`
	}
}

type MoveTaskInput struct {
	Body struct {
		TaskID string `json:"taskId" minLength:"1" doc:"Task ID"`
		From   string `json:"from" doc:"Source column key or name"`
		To     string `json:"to" doc:"Destination column key or name"`
	}
}

type DropInput struct {
	Body struct {
		TaskID     string `json:"taskId" doc:"Dragged task ID"`
		FromColumn string `json:"fromColumn" doc:"Column the drag started in"`
		ToColumn   string `json:"toColumn" doc:"Column the task was dropped on"`
	}
}

// RegisterBoardRoutes exposes the board store. Every mutation answers with the
// board as it is after the change.
func RegisterBoardRoutes(api huma.API, store BoardStore) {
	view := func() (*BoardOutput, error) {
		return &BoardOutput{Body: store.View()}, nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Get the board",
		Tags:        []string{"Board"},
	}, func(_ context.Context, _ *struct{}) (*BoardOutput, error) {
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "load-board",
		Method:      http.MethodPost,
		Path:        "/board/load",
		Summary:     "Reload the board from the task API",
		Description: "Replaces every column. All fetched tasks are placed in To Do.",
		Tags:        []string{"Board"},
	}, func(ctx context.Context, _ *struct{}) (*BoardOutput, error) {
		if err := store.Load(ctx); err != nil {
			return nil, huma.Error502BadGateway("failed to load tasks", err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-form",
		Method:      http.MethodPut,
		Path:        "/board/form",
		Summary:     "Set the new-task input fields",
		Tags:        []string{"Board"},
	}, func(_ context.Context, input *FormInput) (*BoardOutput, error) {
		store.SetForm(input.Body.Title, input.Body.Description)
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID:   "submit-form",
		Method:        http.MethodPost,
		Path:          "/board/form/submit",
		Summary:       "Add a task from the input fields",
		Tags:          []string{"Board"},
		DefaultStatus: http.StatusCreated,
	}, func(_ context.Context, _ *struct{}) (*BoardOutput, error) {
		if _, err := store.SubmitForm(); err != nil {
			return nil, boardError("failed to add task", err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-task",
		Method:        http.MethodPost,
		Path:          "/board/tasks",
		Summary:       "Add a task to To Do",
		Tags:          []string{"Board"},
		DefaultStatus: http.StatusCreated,
	}, func(_ context.Context, input *AddTaskInput) (*BoardOutput, error) {
		if _, err := store.AddTask(input.Body.Title, input.Body.Description); err != nil {
			return nil, boardError("failed to add task", err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-editing",
		Method:      http.MethodPost,
		Path:        "/board/columns/{column}/tasks/{id}/edit",
		Summary:     "Open the inline editor for a task",
		Tags:        []string{"Board"},
	}, func(_ context.Context, input *TaskRefInput) (*BoardOutput, error) {
		column, err := domain.ParseColumn(input.Column)
		if err != nil {
			return nil, boardError("invalid column", err)
		}
		if err := store.StartEditing(input.ID, column); err != nil {
			return nil, boardError("failed to start editing", err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-draft",
		Method:      http.MethodPut,
		Path:        "/board/columns/{column}/tasks/{id}/draft",
		Summary:     "Change the uncommitted fields of a task being edited",
		Tags:        []string{"Board"},
	}, func(_ context.Context, input *TaskFieldsInput) (*BoardOutput, error) {
		column, err := domain.ParseColumn(input.Column)
		if err != nil {
			return nil, boardError("invalid column", err)
		}
		if err := store.UpdateDraft(input.ID, column, input.Body.Title, input.Body.Description); err != nil {
			return nil, boardError("failed to update draft", err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-edit",
		Method:      http.MethodPost,
		Path:        "/board/columns/{column}/tasks/{id}/save",
		Summary:     "Commit an edit",
		Tags:        []string{"Board"},
	}, func(_ context.Context, input *TaskFieldsInput) (*BoardOutput, error) {
		column, err := domain.ParseColumn(input.Column)
		if err != nil {
			return nil, boardError("invalid column", err)
		}
		if _, err := store.SaveEdit(input.ID, column, input.Body.Title, input.Body.Description); err != nil {
			return nil, boardError("failed to save task", err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-edit",
		Method:      http.MethodPost,
		Path:        "/board/columns/{column}/tasks/{id}/cancel",
		Summary:     "Discard an edit",
		Tags:        []string{"Board"},
	}, func(_ context.Context, input *TaskRefInput) (*BoardOutput, error) {
		column, err := domain.ParseColumn(input.Column)
		if err != nil {
			return nil, boardError("invalid column", err)
		}
		if err := store.CancelEdit(input.ID, column); err != nil {
			return nil, boardError("failed to cancel edit", err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/board/columns/{column}/tasks/{id}",
		Summary:     "Delete a task",
		Tags:        []string{"Board"},
	}, func(_ context.Context, input *TaskRefInput) (*BoardOutput, error) {
		column, err := domain.ParseColumn(input.Column)
		if err != nil {
			return nil, boardError("invalid column", err)
		}
		if err := store.DeleteTask(input.ID, column); err != nil {
			return nil, boardError("failed to delete task", err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPost,
		Path:        "/board/moves",
		Summary:     "Move a task to the end of another column",
		Tags:        []string{"Board"},
	}, func(_ context.Context, input *MoveTaskInput) (*BoardOutput, error) {
		from, err := domain.ParseColumn(input.Body.From)
		if err != nil {
			return nil, boardError("invalid source column", err)
		}
		to, err := domain.ParseColumn(input.Body.To)
		if err != nil {
			return nil, boardError("invalid destination column", err)
		}
		if err := store.MoveTask(input.Body.TaskID, from, to); err != nil {
			return nil, boardError("failed to move task", err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "drop-task",
		Method:      http.MethodPost,
		Path:        "/board/drop",
		Summary:     "Complete a drag-and-drop",
		Tags:        []string{"Board"},
	}, func(_ context.Context, input *DropInput) (*BoardOutput, error) {
		to, err := domain.ParseColumn(input.Body.ToColumn)
		if err != nil {
			return nil, boardError("invalid drop column", err)
		}
		payload := board.DragPayload{TaskID: input.Body.TaskID, FromColumn: input.Body.FromColumn}
		if err := store.Drop(payload, to); err != nil {
			return nil, boardError("failed to drop task", err)
		}
		return view()
	})
}

func boardError(msg string, err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyTitle), errors.Is(err, domain.ErrInvalidDrag):
		return huma.Error422UnprocessableEntity(msg, err)
	case errors.Is(err, domain.ErrTaskNotFound):
		return huma.Error404NotFound(msg, err)
	case errors.Is(err, domain.ErrUnknownColumn):
		return huma.Error400BadRequest(msg, err)
	case errors.Is(err, domain.ErrNotEditing):
		return huma.Error409Conflict(msg, err)
	case errors.Is(err, domain.ErrGateway):
		return huma.Error502BadGateway(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
