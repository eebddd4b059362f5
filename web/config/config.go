package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration loaded from environment variables
type Config struct {
	// HTTP server
	HTTPPort string `env:"WEB_HTTP_PORT" envDefault:"8080"`
	HTTPHost string `env:"WEB_HTTP_HOST" envDefault:"localhost"`

	// Chain access
	NodeURL           string        `env:"PROPS_NODE_URL" envDefault:"http://localhost:3999"`
	Contract          string        `env:"PROPS_CONTRACT" envDefault:"SP000000000000000000002Q6VF78.props-v1"`
	Sender            string        `env:"PROPS_SENDER" envDefault:"SP000000000000000000002Q6VF78"`
	HTTPClientTimeout time.Duration `env:"PROPS_HTTP_CLIENT_TIMEOUT" envDefault:"10s"`

	// Aggregation
	LeaderboardWindow uint64        `env:"PROPS_LEADERBOARD_WINDOW" envDefault:"10"`
	HistoryWindow     uint64        `env:"PROPS_HISTORY_WINDOW" envDefault:"50"`
	ReceivedLimit     uint64        `env:"PROPS_RECEIVED_LIMIT" envDefault:"20"`
	Retries           uint          `env:"PROPS_RETRIES" envDefault:"3"`
	BaseDelay         time.Duration `env:"PROPS_BASE_DELAY" envDefault:"500ms"`
	Concurrency       int           `env:"PROPS_CONCURRENCY" envDefault:"1"`

	// Background refresh
	RefreshInterval time.Duration `env:"PROPS_REFRESH_INTERVAL" envDefault:"1m"`

	// Report cache. An empty RedisAddr selects the in-process cache.
	RedisAddr string        `env:"WEB_REDIS_ADDR" envDefault:""`
	CacheTTL  time.Duration `env:"WEB_CACHE_TTL" envDefault:"5m"`

	// Snapshot archive. An empty DatabaseURL disables archiving.
	DatabaseURL   string `env:"WEB_DATABASE_URL" envDefault:""`
	MigrationsDir string `env:"WEB_MIGRATIONS_DIR" envDefault:"migrations"`

	// Logging
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogHumanFriendly bool   `env:"LOG_HUMAN_FRIENDLY" envDefault:"false"`
}

// New loads all configuration from environment variables
func New() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}
	return cfg
}
