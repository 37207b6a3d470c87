// Package board holds the kanban board state and mediates every mutation.
//
// Local mutations are serialized by the store's mutex and are visible as soon
// as the call returns. Each add, save and delete also starts a gateway call in
// the background; its result is never merged back into local state. Moves are
// local only because the remote task schema has no notion of columns.
package board

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanban/internal/domain"
)

const (
	defaultSyncTimeout     = 10 * time.Second
	defaultSyncConcurrency = 8
)

// Draft is an uncommitted edit of a task's fields.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Form holds the new-task input fields. A successful add clears it.
type Form struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPublisher sets where board events are sent.
func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithFailureHandler sets who is told about failed gateway calls.
func WithFailureHandler(h FailureHandler) Option {
	return func(s *Store) { s.failures = h }
}

// WithSync bounds each gateway call by timeout and caps how many run at once.
func WithSync(timeout time.Duration, concurrency int) Option {
	return func(s *Store) {
		s.syncTimeout = timeout
		s.syncConcurrency = concurrency
	}
}

// Store is the single source of truth for what the board renders.
type Store struct {
	mu      sync.Mutex
	columns []domain.Column
	drafts  map[string]Draft
	pending map[string]int
	form    Form
	lastID  int64

	gateway         domain.TaskGateway
	publisher       Publisher
	failures        FailureHandler
	now             func() time.Time
	syncTimeout     time.Duration
	syncConcurrency int
	sync            *dispatcher
}

// New creates an empty board backed by gateway.
func New(gateway domain.TaskGateway, opts ...Option) *Store {
	s := &Store{
		columns:         emptyColumns(),
		drafts:          make(map[string]Draft),
		pending:         make(map[string]int),
		gateway:         gateway,
		now:             time.Now,
		syncTimeout:     defaultSyncTimeout,
		syncConcurrency: defaultSyncConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.syncTimeout <= 0 {
		s.syncTimeout = defaultSyncTimeout
	}
	s.sync = newDispatcher(s.syncTimeout, s.syncConcurrency)
	return s
}

func emptyColumns() []domain.Column {
	names := domain.ColumnNames()
	cols := make([]domain.Column, len(names))
	for i, name := range names {
		cols[i] = domain.Column{Name: name, Tasks: []domain.Task{}}
	}
	return cols
}

// Load replaces the whole board with the gateway's task list. Every fetched
// task goes to the first column. On failure the board is left as it was.
func (s *Store) Load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()

	records, err := s.gateway.ListTasks(ctx)
	if err != nil {
		log.Error().Err(err).Msg("board load failed")
		return fmt.Errorf("board.Store.Load: %w", err)
	}

	columns := emptyColumns()
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			log.Warn().Str("title", r.Title).Msg("skipping fetched task without id")
			continue
		}
		if _, dup := seen[r.ID]; dup {
			log.Warn().Str("task_id", r.ID).Msg("skipping duplicate fetched task")
			continue
		}
		seen[r.ID] = struct{}{}
		columns[0].Tasks = append(columns[0].Tasks, r.Task())
	}

	s.mu.Lock()
	s.columns = columns
	s.drafts = make(map[string]Draft)
	count := len(columns[0].Tasks)
	s.mu.Unlock()

	log.Info().Int("tasks", count).Msg("board loaded")
	s.emit(Event{Type: EventBoardLoaded, Column: columns[0].Name, Count: count})
	return nil
}

// SetForm replaces the new-task input fields.
func (s *Store) SetForm(title, description string) {
	s.mu.Lock()
	s.form = Form{Title: title, Description: description}
	s.mu.Unlock()

	s.emit(Event{Type: EventFormUpdated})
}

// SubmitForm adds a task from the current input fields.
func (s *Store) SubmitForm() (domain.Task, error) {
	s.mu.Lock()
	task, err := s.addLocked(s.form.Title, s.form.Description)
	s.mu.Unlock()
	if err != nil {
		return domain.Task{}, fmt.Errorf("board.Store.SubmitForm: %w", err)
	}

	s.emitTask(EventTaskCreated, task, domain.ColumnToDo)
	return task, nil
}

// AddTask appends a new task to the first column and mirrors it remotely.
// A title that is empty after trimming is rejected and nothing changes.
func (s *Store) AddTask(title, description string) (domain.Task, error) {
	s.mu.Lock()
	task, err := s.addLocked(title, description)
	s.mu.Unlock()
	if err != nil {
		return domain.Task{}, fmt.Errorf("board.Store.AddTask: %w", err)
	}

	s.emitTask(EventTaskCreated, task, domain.ColumnToDo)
	return task, nil
}

func (s *Store) addLocked(title, description string) (domain.Task, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Task{}, domain.ErrEmptyTitle
	}

	stamp := domain.FormatTimestamp(s.now())
	task := domain.Task{
		ID:          s.nextIDLocked(),
		Title:       title,
		Description: description,
		CreatedAt:   stamp,
		UpdatedAt:   stamp,
	}

	first := &s.columns[0]
	first.Tasks = append(first.Tasks, task)
	s.form = Form{}

	rec := task.Record()
	s.dispatchLocked(syncOp{
		op:     OpCreate,
		taskID: task.ID,
		call: func(ctx context.Context) error {
			return s.gateway.CreateTask(ctx, rec)
		},
	})

	return task, nil
}

// StartEditing opens the inline editor for a task, seeding its draft from the
// committed fields. Other tasks are untouched.
func (s *Store) StartEditing(taskID string, column domain.ColumnName) error {
	s.mu.Lock()
	col, i, err := s.locateLocked(taskID, column)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("board.Store.StartEditing: %w", err)
	}

	task := &col.Tasks[i]
	task.IsEditing = true
	if _, ok := s.drafts[taskID]; !ok {
		s.drafts[taskID] = Draft{Title: task.Title, Description: task.Description}
	}
	s.mu.Unlock()

	s.emit(Event{Type: EventEditingStarted, TaskID: taskID, Column: column})
	return nil
}

// UpdateDraft changes the uncommitted fields of a task being edited.
func (s *Store) UpdateDraft(taskID string, column domain.ColumnName, title, description string) error {
	s.mu.Lock()
	col, i, err := s.locateLocked(taskID, column)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("board.Store.UpdateDraft: %w", err)
	}
	if !col.Tasks[i].IsEditing {
		s.mu.Unlock()
		return fmt.Errorf("board.Store.UpdateDraft: %w: %s", domain.ErrNotEditing, taskID)
	}
	s.drafts[taskID] = Draft{Title: title, Description: description}
	s.mu.Unlock()

	s.emit(Event{Type: EventDraftUpdated, TaskID: taskID, Column: column})
	return nil
}

// SaveEdit commits new title and description, refreshes updatedAt and closes
// the editor. id and createdAt are preserved. The full record is pushed to the
// gateway. A title that is blank after trimming is rejected with ErrEmptyTitle
// as in AddTask, even though the task API itself would accept it; like
// CancelEdit this is a board-side addition.
func (s *Store) SaveEdit(taskID string, column domain.ColumnName, title, description string) (domain.Task, error) {
	s.mu.Lock()
	col, i, err := s.locateLocked(taskID, column)
	if err != nil {
		s.mu.Unlock()
		return domain.Task{}, fmt.Errorf("board.Store.SaveEdit: %w", err)
	}

	task := &col.Tasks[i]
	if !task.IsEditing {
		s.mu.Unlock()
		return domain.Task{}, fmt.Errorf("board.Store.SaveEdit: %w: %s", domain.ErrNotEditing, taskID)
	}
	if strings.TrimSpace(title) == "" {
		s.mu.Unlock()
		return domain.Task{}, fmt.Errorf("board.Store.SaveEdit: %w", domain.ErrEmptyTitle)
	}

	task.Title = title
	task.Description = description
	task.UpdatedAt = domain.FormatTimestamp(s.now())
	task.IsEditing = false
	delete(s.drafts, taskID)

	saved := *task
	rec := saved.Record()
	s.dispatchLocked(syncOp{
		op:     OpUpdate,
		taskID: taskID,
		call: func(ctx context.Context) error {
			return s.gateway.UpdateTask(ctx, rec.ID, rec)
		},
	})
	s.mu.Unlock()

	s.emitTask(EventTaskUpdated, saved, column)
	return saved, nil
}

// CancelEdit closes the inline editor and discards the draft.
func (s *Store) CancelEdit(taskID string, column domain.ColumnName) error {
	s.mu.Lock()
	col, i, err := s.locateLocked(taskID, column)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("board.Store.CancelEdit: %w", err)
	}
	if !col.Tasks[i].IsEditing {
		s.mu.Unlock()
		return fmt.Errorf("board.Store.CancelEdit: %w: %s", domain.ErrNotEditing, taskID)
	}
	col.Tasks[i].IsEditing = false
	delete(s.drafts, taskID)
	s.mu.Unlock()

	s.emit(Event{Type: EventEditCancelled, TaskID: taskID, Column: column})
	return nil
}

// DeleteTask removes a task from column and deletes it remotely. Deleting a
// task that is not in column changes nothing and makes no remote call.
func (s *Store) DeleteTask(taskID string, column domain.ColumnName) error {
	s.mu.Lock()
	col, i, err := s.locateLocked(taskID, column)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("board.Store.DeleteTask: %w", err)
	}

	col.Tasks = append(col.Tasks[:i:i], col.Tasks[i+1:]...)
	delete(s.drafts, taskID)

	s.dispatchLocked(syncOp{
		op:     OpDelete,
		taskID: taskID,
		call: func(ctx context.Context) error {
			return s.gateway.DeleteTask(ctx, taskID)
		},
	})
	s.mu.Unlock()

	s.emit(Event{Type: EventTaskDeleted, TaskID: taskID, Column: column})
	return nil
}

// MoveTask moves a task to the end of another column, keeping its full record.
// Moving within the same column is a no-op. Moves are not sent to the gateway.
func (s *Store) MoveTask(taskID string, from, to domain.ColumnName) error {
	for _, c := range []domain.ColumnName{from, to} {
		if !c.Valid() {
			return fmt.Errorf("board.Store.MoveTask: %w: %q", domain.ErrUnknownColumn, c)
		}
	}
	if from == to {
		return nil
	}

	s.mu.Lock()
	src, i, err := s.locateLocked(taskID, from)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("board.Store.MoveTask: %w", err)
	}

	task := src.Tasks[i]
	src.Tasks = append(src.Tasks[:i:i], src.Tasks[i+1:]...)
	dst := s.columnLocked(to)
	dst.Tasks = append(dst.Tasks, task)
	s.mu.Unlock()

	s.emit(Event{Type: EventTaskMoved, TaskID: taskID, Column: from, ToColumn: to, Task: &task})
	return nil
}

// View returns a copy of the board for rendering.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Columns: make([]ColumnView, len(s.columns)),
		Form:    s.form,
	}
	for ci, col := range s.columns {
		cv := ColumnView{
			Name:  col.Name,
			Key:   col.Name.Key(),
			Tasks: make([]TaskView, len(col.Tasks)),
		}
		for ti, t := range col.Tasks {
			tv := TaskView{Task: t, Pending: s.pending[t.ID]}
			if d, ok := s.drafts[t.ID]; ok && t.IsEditing {
				draft := d
				tv.Draft = &draft
			}
			cv.Tasks[ti] = tv
		}
		v.Columns[ci] = cv
	}
	return v
}

// Wait blocks until every gateway call started so far has settled.
func (s *Store) Wait() {
	s.sync.wait()
}

func (s *Store) columnLocked(name domain.ColumnName) *domain.Column {
	for i := range s.columns {
		if s.columns[i].Name == name {
			return &s.columns[i]
		}
	}
	return nil
}

func (s *Store) locateLocked(taskID string, column domain.ColumnName) (*domain.Column, int, error) {
	col := s.columnLocked(column)
	if col == nil {
		return nil, -1, fmt.Errorf("%w: %q", domain.ErrUnknownColumn, column)
	}
	for i := range col.Tasks {
		if col.Tasks[i].ID == taskID {
			return col, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %s in %q", domain.ErrTaskNotFound, taskID, column)
}

func (s *Store) hasIDLocked(id string) bool {
	for _, col := range s.columns {
		for _, t := range col.Tasks {
			if t.ID == id {
				return true
			}
		}
	}
	return false
}

// nextIDLocked derives an id from the clock in milliseconds, bumping until it
// is unused on the board.
func (s *Store) nextIDLocked() string {
	ms := s.now().UnixMilli()
	if ms <= s.lastID {
		ms = s.lastID + 1
	}
	for s.hasIDLocked(taskID(ms)) {
		ms++
	}
	s.lastID = ms
	return taskID(ms)
}

func taskID(ms int64) string {
	return fmt.Sprintf("todo-%d", ms)
}

func (s *Store) dispatchLocked(op syncOp) {
	s.pending[op.taskID]++
	s.sync.dispatch(op, s.settle)
}

func (s *Store) settle(op syncOp, err error) {
	s.mu.Lock()
	if s.pending[op.taskID] <= 1 {
		delete(s.pending, op.taskID)
	} else {
		s.pending[op.taskID]--
	}
	s.mu.Unlock()

	if err == nil {
		s.emit(Event{Type: EventSyncSettled, TaskID: op.taskID, Op: op.op})
		return
	}

	log.Warn().Err(err).Str("op", op.op).Str("task_id", op.taskID).Msg("gateway sync failed")
	s.emit(Event{Type: EventSyncFailed, TaskID: op.taskID, Op: op.op, Error: err.Error()})

	if s.failures != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
		defer cancel()
		s.failures.HandleSyncFailure(ctx, SyncFailure{
			Op:     op.op,
			TaskID: op.taskID,
			Err:    err,
			At:     s.now(),
		})
	}
}

func (s *Store) emitTask(eventType string, task domain.Task, column domain.ColumnName) {
	s.emit(Event{Type: eventType, TaskID: task.ID, Column: column, Task: &task})
}

func (s *Store) emit(e Event) {
	if s.publisher == nil {
		return
	}
	e.At = s.now()

	ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
	defer cancel()

	if err := s.publisher.PublishBoardEvent(ctx, e); err != nil {
		log.Debug().Err(err).Str("event", e.Type).Msg("board event publish")
	}
}
