// Package sqlite is the gorm-backed task repository for single-node
// deployments of the reference task API.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gosuda/kanban/internal/domain"
)

// taskRow is the table layout. Seq keeps list order stable across updates.
type taskRow struct {
	Seq         uint   `gorm:"primaryKey;autoIncrement"`
	ID          string `gorm:"column:id;uniqueIndex;not null"`
	Title       string `gorm:"not null"`
	Description string
	CreatedAt   string
	UpdatedAt   string
}

func (taskRow) TableName() string { return "tasks" }

func (r taskRow) record() domain.Record {
	return domain.Record{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Store owns the gorm connection.
type Store struct {
	db    *gorm.DB
	tasks *TaskRepo
}

// New opens (or creates) the database at path and migrates the tasks table.
// Use ":memory:" for a throwaway database.
func New(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: handle: %w", err)
	}
	// One connection: sqlite serializes writers and every ":memory:"
	// connection would otherwise be its own database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&taskRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite.New: migrate: %w", err)
	}

	return &Store{db: db, tasks: &TaskRepo{db: db}}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlite.Store.Close: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("sqlite.Store.Close: %w", err)
	}
	return nil
}

func (s *Store) Tasks() domain.TaskRepository { return s.tasks }

// TaskRepo implements domain.TaskRepository with gorm.
type TaskRepo struct {
	db *gorm.DB
}

// List returns every record in insertion order. The task API has no paging.
func (r *TaskRepo) List(ctx context.Context) ([]domain.Record, error) {
	var rows []taskRow
	if err := r.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlite.TaskRepo.List: %w", err)
	}

	records := make([]domain.Record, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

func (r *TaskRepo) Get(ctx context.Context, id string) (*domain.Record, error) {
	var row taskRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sqlite.TaskRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite.TaskRepo.Get: %w", err)
	}

	rec := row.record()
	return &rec, nil
}

func (r *TaskRepo) Create(ctx context.Context, rec *domain.Record) error {
	row := taskRow{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("sqlite.TaskRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("sqlite.TaskRepo.Create: %w", err)
	}
	return nil
}

func (r *TaskRepo) Replace(ctx context.Context, rec *domain.Record) error {
	res := r.db.WithContext(ctx).Model(&taskRow{}).Where("id = ?", rec.ID).Updates(map[string]any{
		"title":       rec.Title,
		"description": rec.Description,
		"created_at":  rec.CreatedAt,
		"updated_at":  rec.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("sqlite.TaskRepo.Replace: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("sqlite.TaskRepo.Replace: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&taskRow{})
	if res.Error != nil {
		return fmt.Errorf("sqlite.TaskRepo.Delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("sqlite.TaskRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}
