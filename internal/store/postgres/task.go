package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/kanban/internal/domain"
)

// uniqueViolation is the SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// List returns every record in insertion order. The task API has no paging.
func (r *TaskRepo) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, created_at, updated_at
		 FROM tasks ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.List: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows, "taskRepo.List")
}

func (r *TaskRepo) Get(ctx context.Context, id string) (*domain.Record, error) {
	var rec domain.Record

	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, created_at, updated_at
		 FROM tasks WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.Title, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.Get: %w", err)
	}

	return &rec, nil
}

func (r *TaskRepo) Create(ctx context.Context, rec *domain.Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (id, title, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Title, rec.Description, rec.CreatedAt, rec.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("taskRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("taskRepo.Create: %w", err)
	}

	return nil
}

func (r *TaskRepo) Replace(ctx context.Context, rec *domain.Record) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, created_at = $3, updated_at = $4
		 WHERE id = $5`,
		rec.Title, rec.Description, rec.CreatedAt, rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.Replace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Replace: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("taskRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanRecords(rows pgx.Rows, caller string) ([]domain.Record, error) {
	records := []domain.Record{}
	for rows.Next() {
		var rec domain.Record
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return records, nil
}
