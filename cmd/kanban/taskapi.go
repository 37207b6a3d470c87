package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/kanban/internal/config"
	"github.com/gosuda/kanban/internal/domain"
	"github.com/gosuda/kanban/internal/server"
	"github.com/gosuda/kanban/internal/store/memory"
	"github.com/gosuda/kanban/internal/store/postgres"
	"github.com/gosuda/kanban/internal/store/sqlite"
)

func taskAPICmd() *cobra.Command {
	var (
		addr  string
		store string
	)

	cmd := &cobra.Command{
		Use:   "taskapi",
		Short: "Start the reference task API the board syncs with",
		Long: `Start the task API: GET/POST /tasks and GET/PUT/DELETE /tasks/{id}.

Examples:
  kanban taskapi
  kanban taskapi --store sqlite
  KANBAN_DB_HOST=db kanban taskapi --store postgres`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.TaskAPI.Addr = addr
			}
			if store != "" {
				cfg.TaskAPI.Store = strings.ToLower(store)
			}
			return runTaskAPI(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides KANBAN_TASKAPI_ADDR)")
	cmd.Flags().StringVar(&store, "store", "", "storage backend: memory, postgres or sqlite (overrides KANBAN_TASKAPI_STORE)")

	return cmd
}

func runTaskAPI(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(contextOrBackground(ctx), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	repo, closeRepo, err := openTaskRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	srv := server.NewTaskAPI(cfg, repo)

	go func() {
		log.Info().Str("addr", srv.Addr()).Str("store", cfg.TaskAPI.Store).Msg("starting task API")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

// openTaskRepo opens the configured storage backend. The returned func
// releases it.
func openTaskRepo(ctx context.Context, cfg *config.Config) (domain.TaskRepository, func(), error) {
	switch cfg.TaskAPI.Store {
	case config.StoreMemory:
		return memory.NewTaskRepo(), func() {}, nil

	case config.StorePostgres:
		if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
			return nil, nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}
		store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if err != nil {
			return nil, nil, err
		}
		return store.Tasks(), store.Close, nil

	case config.StoreSQLite:
		store, err := sqlite.New(cfg.TaskAPI.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Warn().Err(closeErr).Msg("closing sqlite store")
			}
		}
		return store.Tasks(), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown task store %q", cfg.TaskAPI.Store)
	}
}
