package v1_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/kanban/internal/api/v1"
	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock TaskGateway
// ---------------------------------------------------------------------------

type mockGateway struct {
	mu sync.Mutex

	listFunc func(ctx context.Context) ([]domain.Record, error)

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

func (m *mockGateway) CreateTask(_ context.Context, r domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, r)
	return nil
}

func (m *mockGateway) UpdateTask(_ context.Context, _ string, r domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, r)
	return nil
}

func (m *mockGateway) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockGateway) deletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func remoteRecords() []domain.Record {
	return []domain.Record{
		{ID: "t1", Title: "Buy milk", Description: "2 liters", CreatedAt: "2024-04-30 08:00:00", UpdatedAt: "2024-04-30 08:00:00"},
		{ID: "t2", Title: "Write report", CreatedAt: "2024-04-30 09:00:00", UpdatedAt: "2024-04-30 09:00:00"},
	}
}

// newBoardAPI registers the board routes over a real store. When loaded is
// true the store is populated with remoteRecords first.
func newBoardAPI(t *testing.T, gw *mockGateway, loaded bool) (humatest.TestAPI, *board.Store) {
	t.Helper()

	if loaded && gw.listFunc == nil {
		gw.listFunc = func(context.Context) ([]domain.Record, error) { return remoteRecords(), nil }
	}

	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	store := board.New(gw, board.WithClock(func() time.Time { return now }))
	if loaded {
		require.NoError(t, store.Load(context.Background()))
	}
	t.Cleanup(store.Wait)

	_, api := humatest.New(t)
	v1.RegisterBoardRoutes(api, store)
	return api, store
}

func decodeView(t *testing.T, resp *httptest.ResponseRecorder) board.View {
	t.Helper()

	var v board.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
