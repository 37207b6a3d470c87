package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/gosuda/kanban/internal/api/ws"
	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/config"
	"github.com/gosuda/kanban/internal/gateway"
	"github.com/gosuda/kanban/internal/notify"
	"github.com/gosuda/kanban/internal/server"
	"github.com/gosuda/kanban/internal/store/memory"
	redisstore "github.com/gosuda/kanban/internal/store/redis"
	"github.com/gosuda/kanban/web"
)

const shutdownTimeout = 10 * time.Second

// broker is the pub/sub backend behind the websocket hub.
type broker interface {
	ws.PubSub
	Close() error
}

func serveCmd() *cobra.Command {
	var (
		addr       string
		gatewayURL string
		noUI       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the board server",
		Long: `Start the board server: the board API on /api/v1, board events on
/ws/board and the board UI on /.

Examples:
  kanban serve
  kanban serve --addr :9090 --gateway http://tasks.internal:5000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if gatewayURL != "" {
				cfg.Gateway.URL = gatewayURL
			}
			return runServe(cmd.Context(), cfg, !noUI)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides KANBAN_SERVER_ADDR)")
	cmd.Flags().StringVar(&gatewayURL, "gateway", "", "task API base URL (overrides KANBAN_GATEWAY_URL)")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "do not serve the embedded board UI")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, withUI bool) error {
	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(contextOrBackground(ctx), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pubsub, err := openBroker(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	hub := ws.NewHub(pubsub, cfg.Board.ID, cfg.Server.OriginHosts())
	store := newBoardStore(cfg, hub)

	if cfg.Board.LoadOnStart {
		if loadErr := store.Load(ctx); loadErr != nil {
			// The board stays usable with no tasks; POST /api/v1/board/load retries.
			log.Error().Err(loadErr).Str("gateway", cfg.Gateway.URL).Msg("initial board load failed")
		}
	}

	var webAssets fs.FS
	if withUI {
		webAssets, err = fs.Sub(web.Assets, "static")
		if err != nil {
			return fmt.Errorf("web assets: %w", err)
		}
	}

	srv := server.New(ctx, cfg, store, hub, webAssets)

	go func() {
		log.Info().Str("addr", srv.Addr()).Str("board_id", cfg.Board.ID).Msg("starting board server")
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

	// Let in-flight gateway calls finish; each is bounded by the sync timeout.
	store.Wait()

	log.Info().Msg("stopped")
	return nil
}

// openBroker connects to Redis when an address is configured and falls back
// to the in-process broker otherwise.
func openBroker(ctx context.Context, cfg config.RedisConfig) (broker, error) {
	if cfg.Addr == "" {
		log.Info().Msg("using in-process event broker")
		return memory.NewPubSub(), nil
	}

	pubsub, err := redisstore.New(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.Addr).Msg("using redis event broker")
	return pubsub, nil
}

func newBoardStore(cfg *config.Config, pub board.Publisher) *board.Store {
	var notifyOpts []notify.Option
	if cfg.Slack.BotToken != "" {
		notifyOpts = append(notifyOpts, notify.WithSlack(slacklib.New(cfg.Slack.BotToken), cfg.Slack.Channel))
		log.Info().Str("channel", cfg.Slack.Channel).Msg("Slack sync failure notifications enabled")
	}

	return board.New(
		gateway.New(cfg.Gateway.URL, cfg.Board.SyncTimeout),
		board.WithSync(cfg.Board.SyncTimeout, cfg.Board.SyncConcurrency),
		board.WithPublisher(pub),
		board.WithFailureHandler(notify.New(cfg.Board.ID, notifyOpts...)),
	)
}
