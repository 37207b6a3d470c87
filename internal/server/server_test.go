package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/kanban/internal/api/ws"
	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/config"
	"github.com/gosuda/kanban/internal/domain"
	"github.com/gosuda/kanban/internal/gateway"
	"github.com/gosuda/kanban/internal/server"
	"github.com/gosuda/kanban/internal/store/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:           ":0",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   5 * time.Second,
			CORSOrigins:    []string{"http://localhost:8080"},
			RateLimitRPS:   1000,
			RateLimitBurst: 1000,
		},
		Board:   config.BoardConfig{ID: "test", SyncTimeout: time.Second, SyncConcurrency: 2},
		TaskAPI: config.TaskAPIConfig{Addr: ":0", Store: config.StoreMemory},
	}
}

type stack struct {
	repo    *memory.TaskRepo
	store   *board.Store
	taskAPI *httptest.Server
	board   *httptest.Server
}

// newStack runs the task API and the board server against each other the
// way the serve and taskapi commands do.
func newStack(t *testing.T, cfg *config.Config, assets fstest.MapFS) *stack {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	repo := memory.NewTaskRepo()
	taskAPI := httptest.NewServer(server.NewTaskAPI(cfg, repo).Handler())
	t.Cleanup(taskAPI.Close)

	pubsub := memory.NewPubSub()
	t.Cleanup(func() { _ = pubsub.Close() })
	hub := ws.NewHub(pubsub, cfg.Board.ID, nil)

	store := board.New(gateway.New(taskAPI.URL, time.Second),
		board.WithPublisher(hub),
		board.WithSync(cfg.Board.SyncTimeout, cfg.Board.SyncConcurrency),
	)
	t.Cleanup(store.Wait)

	// A nil MapFS must stay a nil fs.FS so the UI is not mounted.
	var webAssets fs.FS
	if assets != nil {
		webAssets = assets
	}
	boardSrv := httptest.NewServer(server.New(ctx, cfg, store, hub, webAssets).Handler())
	t.Cleanup(boardSrv.Close)

	return &stack{repo: repo, store: store, taskAPI: taskAPI, board: boardSrv}
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decodeView(t *testing.T, raw []byte) board.View {
	t.Helper()
	var v board.View
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := newStack(t, testConfig(), nil)

	for _, base := range []string{s.board.URL, s.taskAPI.URL} {
		resp, raw := do(t, http.MethodGet, base+"/healthz", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"status":"ok"}`, string(raw))
	}
}

func TestBoardServer_LoadAndSync(t *testing.T) {
	t.Parallel()

	s := newStack(t, testConfig(), nil)
	require.NoError(t, s.repo.Create(context.Background(), &domain.Record{
		ID: "t1", Title: "Buy milk", CreatedAt: "2024-04-30 08:00:00", UpdatedAt: "2024-04-30 08:00:00",
	}))

	resp, raw := do(t, http.MethodPost, s.board.URL+"/api/v1/board/load", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, []string{"t1"}, decodeView(t, raw).Column(domain.ColumnToDo).IDs())

	resp, raw = do(t, http.MethodPost, s.board.URL+"/api/v1/board/tasks", map[string]string{
		"title": "Plan sprint",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	todo := decodeView(t, raw).Column(domain.ColumnToDo)
	require.Len(t, todo.Tasks, 2)
	created := todo.Tasks[1]

	s.store.Wait()
	rec, err := s.repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan sprint", rec.Title)

	resp, raw = do(t, http.MethodDelete, s.board.URL+"/api/v1/board/columns/todo/tasks/t1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	s.store.Wait()
	_, err = s.repo.Get(context.Background(), "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBoardServer_LoadFailureIsBadGateway(t *testing.T) {
	t.Parallel()

	s := newStack(t, testConfig(), nil)
	s.taskAPI.Close()

	resp, _ := do(t, http.MethodPost, s.board.URL+"/api/v1/board/load", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestBoardServer_RateLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	s := newStack(t, cfg, nil)

	resp, _ := do(t, http.MethodGet, s.board.URL+"/api/v1/board", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, s.board.URL+"/api/v1/board", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, s.board.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health check is not rate limited")
}

func TestBoardServer_CORS(t *testing.T) {
	t.Parallel()

	s := newStack(t, testConfig(), nil)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, s.board.URL+"/api/v1/board/tasks", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:8080", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestBoardServer_SPA(t *testing.T) {
	t.Parallel()

	assets := fstest.MapFS{
		"index.html": {Data: []byte("<title>Kanban</title>")},
		"app.js":     {Data: []byte("console.log('board')")},
	}
	s := newStack(t, testConfig(), assets)

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "root serves index", path: "/", want: "<title>Kanban</title>"},
		{name: "asset served as is", path: "/app.js", want: "console.log('board')"},
		{name: "unknown path falls back to index", path: "/columns/done", want: "<title>Kanban</title>"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, raw := do(t, http.MethodGet, s.board.URL+tc.path, nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tc.want, string(raw))
		})
	}
}

func TestBoardServer_WebsocketReceivesEvents(t *testing.T) {
	t.Parallel()

	s := newStack(t, testConfig(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(s.board.URL, "http") + "/ws/board"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	received := make(chan []byte, 1)
	go func() {
		_, msg, readErr := conn.Read(ctx)
		if readErr == nil {
			received <- msg
		}
	}()

	// The subscription is set up after the handshake; keep mutating until an
	// event makes it through.
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case msg := <-received:
			var evt board.Event
			require.NoError(t, json.Unmarshal(msg, &evt))
			assert.NotEmpty(t, evt.Type)
			return
		case <-ticker.C:
			resp, _ := do(t, http.MethodPut, s.board.URL+"/api/v1/board/form", map[string]string{"title": "typing"})
			require.Equal(t, http.StatusOK, resp.StatusCode)
		case <-ctx.Done():
			t.Fatal("no board event received")
		}
	}
}

func TestTaskAPIServer_Routes(t *testing.T) {
	t.Parallel()

	s := newStack(t, testConfig(), nil)

	resp, raw := do(t, http.MethodPost, s.taskAPI.URL+"/tasks", map[string]string{"id": "a", "title": "Alpha"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	records, err := gateway.New(s.taskAPI.URL, time.Second).ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Alpha", records[0].Title)

	resp, _ = do(t, http.MethodGet, s.taskAPI.URL+"/api/v1/board", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "task API does not mount the board")
}
