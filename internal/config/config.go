package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Task API storage backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Board    BoardConfig
	Gateway  GatewayConfig
	Redis    RedisConfig
	Slack    SlackConfig
	TaskAPI  TaskAPIConfig
	Database DatabaseConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings shared by both servers.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// BoardConfig holds board state settings.
type BoardConfig struct {
	ID              string
	LoadOnStart     bool
	SyncTimeout     time.Duration
	SyncConcurrency int
}

// GatewayConfig holds the remote task API location.
type GatewayConfig struct {
	URL string
}

// RedisConfig holds Redis connection settings. An empty Addr selects the
// in-process broker.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// SlackConfig holds sync failure notification settings.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// TaskAPIConfig holds reference task API settings.
type TaskAPIConfig struct {
	Addr       string
	Store      string
	SQLitePath string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables.
// Defaults match a local setup: board on :8080, task API on :5000.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("KANBAN_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("KANBAN_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("KANBAN_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("KANBAN_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("KANBAN_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateRPS, err := getEnvFloat("KANBAN_RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("KANBAN_RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	syncTimeout, err := getEnvDuration("KANBAN_SYNC_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	syncConcurrency, err := getEnvInt("KANBAN_SYNC_CONCURRENCY", 8)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	loadOnStart, err := getEnvBool("KANBAN_LOAD_ON_START", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:           getEnv("KANBAN_SERVER_ADDR", ":8080"),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			CORSOrigins:    getEnvList("KANBAN_CORS_ORIGINS", []string{"http://localhost:8080"}),
			RateLimitRPS:   rateRPS,
			RateLimitBurst: rateBurst,
		},
		Board: BoardConfig{
			ID:              getEnv("KANBAN_BOARD_ID", "default"),
			LoadOnStart:     loadOnStart,
			SyncTimeout:     syncTimeout,
			SyncConcurrency: syncConcurrency,
		},
		Gateway: GatewayConfig{
			URL: getEnv("KANBAN_GATEWAY_URL", "http://localhost:5000"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("KANBAN_REDIS_ADDR", ""),
			Password: getEnv("KANBAN_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Slack: SlackConfig{
			BotToken: getEnv("KANBAN_SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("KANBAN_SLACK_CHANNEL", ""),
		},
		TaskAPI: TaskAPIConfig{
			Addr:       getEnv("KANBAN_TASKAPI_ADDR", ":5000"),
			Store:      strings.ToLower(getEnv("KANBAN_TASKAPI_STORE", StoreMemory)),
			SQLitePath: getEnv("KANBAN_SQLITE_PATH", "kanban.db"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("KANBAN_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("KANBAN_DB_USER", "kanban"),
			Password: getEnv("KANBAN_DB_PASSWORD", ""),
			DBName:   getEnv("KANBAN_DB_NAME", "kanban"),
			SSLMode:  getEnv("KANBAN_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("KANBAN_LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("KANBAN_LOG_FORMAT", "json")),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("KANBAN_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("KANBAN_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("KANBAN_RATE_LIMIT_RPS must be positive, got %g", c.Server.RateLimitRPS)
	}
	if c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("KANBAN_RATE_LIMIT_BURST must be >= 1, got %d", c.Server.RateLimitBurst)
	}

	if strings.TrimSpace(c.Board.ID) == "" {
		return errors.New("KANBAN_BOARD_ID must not be blank")
	}
	if c.Board.SyncTimeout <= 0 {
		return fmt.Errorf("KANBAN_SYNC_TIMEOUT must be positive, got %s", c.Board.SyncTimeout)
	}
	if c.Board.SyncConcurrency < 1 {
		return fmt.Errorf("KANBAN_SYNC_CONCURRENCY must be >= 1, got %d", c.Board.SyncConcurrency)
	}

	u, err := url.Parse(c.Gateway.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("KANBAN_GATEWAY_URL must be an absolute http(s) URL, got %q", c.Gateway.URL)
	}

	if c.Slack.BotToken != "" && c.Slack.Channel == "" {
		return errors.New("KANBAN_SLACK_CHANNEL is required when KANBAN_SLACK_BOT_TOKEN is set")
	}

	switch c.TaskAPI.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.Database.SSLMode == "disable" {
			log.Warn().Msg("KANBAN_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
		}
	default:
		return fmt.Errorf("KANBAN_TASKAPI_STORE must be one of memory, postgres, sqlite, got %q", c.TaskAPI.Store)
	}
	if c.TaskAPI.Store == StoreSQLite && c.TaskAPI.SQLitePath == "" {
		return errors.New("KANBAN_SQLITE_PATH is required for the sqlite store")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("KANBAN_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("KANBAN_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("KANBAN_LOG_LEVEL: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("KANBAN_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// OriginHosts returns the host[:port] part of each CORS origin, the form
// websocket origin patterns are matched against. Unparseable entries are
// passed through unchanged.
func (c *ServerConfig) OriginHosts() []string {
	hosts := make([]string, 0, len(c.CORSOrigins))
	for _, o := range c.CORSOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
