package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/gosuda/kanban/internal/api/taskapi"
	v1 "github.com/gosuda/kanban/internal/api/v1"
	"github.com/gosuda/kanban/internal/api/ws"
	"github.com/gosuda/kanban/internal/domain"
)

func registerBoardRoutes(api huma.API, store v1.BoardStore) {
	v1.RegisterBoardRoutes(api, store)
}

func registerTaskRoutes(api huma.API, repo domain.TaskRepository) {
	taskapi.RegisterRoutes(api, repo)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/board", hub.ServeBoard)
}
