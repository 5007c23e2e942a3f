// Package config loads per-binary configuration from environment variables
// using go-envconfig. Mains call godotenv first so a local .env file can seed
// the environment during development.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// AuthConfig configures the auth service binary.
type AuthConfig struct {
	Port     string `env:"PORT,       default=8001"`
	RPCAddr  string `env:"RPC_ADDR,   default=:50051"`
	Env      string `env:"ENV,        default=development"`
	LogLevel string `env:"LOG_LEVEL,  default=info"`

	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,  default=30m"`
	CacheTTL  time.Duration `env:"CACHE_TTL,  default=1h"`

	MySQL MySQLConfig
	Redis RedisConfig
}

// GatewayConfig configures the gateway binary.
type GatewayConfig struct {
	Port     string `env:"PORT,      default=8000"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,  default=30m"`

	AuthServiceURL      string `env:"AUTH_SERVICE_URL,      default=http://localhost:8001"`
	DashboardServiceURL string `env:"DASHBOARD_SERVICE_URL, default=http://localhost:8002"`
	ImageServiceURL     string `env:"IMAGE_SERVICE_URL,     default=http://localhost:8003"`
	SearchServiceURL    string `env:"SEARCH_SERVICE_URL,    default=http://localhost:8004"`
}

type MySQLConfig struct {
	User     string `env:"MYSQL_USER,     default=root"`
	Password string `env:"MYSQL_PASSWORD"`
	Host     string `env:"MYSQL_HOST,     default=localhost"`
	Port     string `env:"MYSQL_PORT,     default=3306"`
	Database string `env:"MYSQL_DB,       default=platform"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// LoadAuth reads the auth service configuration from the environment.
func LoadAuth(ctx context.Context) (*AuthConfig, error) {
	var cfg AuthConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadGateway reads the gateway configuration from the environment.
func LoadGateway(ctx context.Context) (*GatewayConfig, error) {
	var cfg GatewayConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
