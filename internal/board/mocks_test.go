package board_test

import (
	"context"
	"sync"
	"time"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock TaskGateway
// ---------------------------------------------------------------------------

type mockGateway struct {
	mu sync.Mutex

	listFunc   func(ctx context.Context) ([]domain.Record, error)
	createFunc func(ctx context.Context, r domain.Record) error
	updateFunc func(ctx context.Context, id string, r domain.Record) error
	deleteFunc func(ctx context.Context, id string) error

	created []domain.Record
	updated []domain.Record
	deleted []string
}

func (m *mockGateway) ListTasks(ctx context.Context) ([]domain.Record, error) {
	if m.listFunc == nil {
		return nil, nil
	}
	return m.listFunc(ctx)
}

func (m *mockGateway) CreateTask(ctx context.Context, r domain.Record) error {
	m.mu.Lock()
	m.created = append(m.created, r)
	m.mu.Unlock()
	if m.createFunc == nil {
		return nil
	}
	return m.createFunc(ctx, r)
}

func (m *mockGateway) UpdateTask(ctx context.Context, id string, r domain.Record) error {
	m.mu.Lock()
	m.updated = append(m.updated, r)
	m.mu.Unlock()
	if m.updateFunc == nil {
		return nil
	}
	return m.updateFunc(ctx, id, r)
}

func (m *mockGateway) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, id)
	m.mu.Unlock()
	if m.deleteFunc == nil {
		return nil
	}
	return m.deleteFunc(ctx, id)
}

func (m *mockGateway) calls() (created, updated []domain.Record, deleted []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Record(nil), m.created...),
		append([]domain.Record(nil), m.updated...),
		append([]string(nil), m.deleted...)
}

// ---------------------------------------------------------------------------
// Recording Publisher / FailureHandler
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []board.Event
}

func (p *recordingPublisher) PublishBoardEvent(_ context.Context, e board.Event) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) find(eventType string) (board.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Type == eventType {
			return e, true
		}
	}
	return board.Event{}, false
}

type recordingFailures struct {
	mu       sync.Mutex
	failures []board.SyncFailure
}

func (r *recordingFailures) HandleSyncFailure(_ context.Context, f board.SyncFailure) {
	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
}

func (r *recordingFailures) all() []board.SyncFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]board.SyncFailure(nil), r.failures...)
}

// ---------------------------------------------------------------------------
// Clock
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func twoRemoteRecords() []domain.Record {
	return []domain.Record{
		{ID: "t1", Title: "Buy milk", Description: "2 liters", CreatedAt: "2024-04-30 08:00:00", UpdatedAt: "2024-04-30 08:00:00"},
		{ID: "t2", Title: "Write report", CreatedAt: "2024-04-30 09:00:00", UpdatedAt: "2024-04-30 09:00:00"},
	}
}

func listing(records []domain.Record) func(context.Context) ([]domain.Record, error) {
	return func(context.Context) ([]domain.Record, error) {
		return records, nil
	}
}
