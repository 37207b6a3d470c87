// Package memory provides in-process implementations of the task repository
// and the board event broker.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gosuda/kanban/internal/domain"
)

// TaskRepo keeps records in insertion order.
type TaskRepo struct {
	mu      sync.RWMutex
	records []domain.Record
}

var _ domain.TaskRepository = (*TaskRepo)(nil) //nolint:gochecknoglobals // compile-time check

func NewTaskRepo() *TaskRepo {
	return &TaskRepo{}
}

func (r *TaskRepo) List(_ context.Context) ([]domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Record, len(r.records))
	copy(out, r.records)
	return out, nil
}

func (r *TaskRepo) Get(_ context.Context, id string) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("memory.TaskRepo.Get: %w", domain.ErrNotFound)
	}
	rec := r.records[i]
	return &rec, nil
}

func (r *TaskRepo) Create(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(rec.ID) >= 0 {
		return fmt.Errorf("memory.TaskRepo.Create: %w", domain.ErrConflict)
	}
	r.records = append(r.records, *rec)
	return nil
}

func (r *TaskRepo) Replace(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(rec.ID)
	if i < 0 {
		return fmt.Errorf("memory.TaskRepo.Replace: %w", domain.ErrNotFound)
	}
	r.records[i] = *rec
	return nil
}

func (r *TaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("memory.TaskRepo.Delete: %w", domain.ErrNotFound)
	}
	r.records = append(r.records[:i], r.records[i+1:]...)
	return nil
}

func (r *TaskRepo) indexLocked(id string) int {
	for i := range r.records {
		if r.records[i].ID == id {
			return i
		}
	}
	return -1
}
