package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	JWT       JWTConfig       `yaml:"jwt"`
	Review    ReviewConfig    `yaml:"review"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host" env:"SERVER_HOST"`
	HTTPPort int    `yaml:"http_port" env:"SERVER_HTTP_PORT"`
	GRPCPort int    `yaml:"grpc_port" env:"SERVER_GRPC_PORT"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host" env:"DB_HOST"`
	Port         int    `yaml:"port" env:"DB_PORT"`
	User         string `yaml:"user" env:"DB_USER"`
	Password     string `yaml:"password" env:"DB_PASSWORD"`
	Database     string `yaml:"database" env:"DB_NAME"`
	SSLMode      string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
}

// RedisConfig is used by the redis cache and the status-change stream.
// An empty Addr disables both.
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"REDIS_ADDR"`
	Username     string `yaml:"username" env:"REDIS_USERNAME"`
	Password     string `yaml:"password" env:"REDIS_PASSWORD"`
	DB           int    `yaml:"db" env:"REDIS_DB"`
	StatusStream string `yaml:"status_stream" env:"REDIS_STATUS_STREAM"`
}

// CacheConfig selects the open-applications cache backend
type CacheConfig struct {
	Type       string `yaml:"type" env:"CACHE_TYPE"` // "memory" or "redis"
	TTLSeconds int    `yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS"`
}

// JWTConfig contains moderator token settings
type JWTConfig struct {
	Secret string `yaml:"secret" env:"JWT_SECRET"`
	Issuer string `yaml:"issuer" env:"JWT_ISSUER"`
}

// ReviewConfig contains review policy settings
type ReviewConfig struct {
	DefaultCooldownHours int `yaml:"default_cooldown_hours" env:"REVIEW_COOLDOWN_HOURS"`
	ClaimTTLHours        int `yaml:"claim_ttl_hours" env:"REVIEW_CLAIM_TTL_HOURS"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ReleaseStaleClaims string `yaml:"release_stale_claims" env:"SCHEDULE_RELEASE_STALE_CLAIMS"`
}

// Load reads configuration from a YAML file, then a .env file if present,
// then environment variables.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse builds a validated Config from YAML bytes plus the environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = c.Server.HTTPPort + 1
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.StatusStream == "" {
		c.Redis.StatusStream = "gatekeeper:status-changes"
	}
	if c.Cache.Type == "" {
		c.Cache.Type = "memory"
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "gatekeeper"
	}
	if c.Review.DefaultCooldownHours == 0 {
		c.Review.DefaultCooldownHours = 24
	}
	if c.Review.ClaimTTLHours == 0 {
		c.Review.ClaimTTLHours = 48
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Scheduler.ReleaseStaleClaims == "" {
		c.Scheduler.ReleaseStaleClaims = "0 */15 * * * *" // every 15 minutes
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 || c.Server.GRPCPort == c.Server.HTTPPort {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	switch c.Cache.Type {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown cache type: %s", c.Cache.Type)
	}

	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.Review.DefaultCooldownHours < 0 || c.Review.ClaimTTLHours < 0 {
		return fmt.Errorf("review durations must not be negative")
	}
	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) ClaimTTL() time.Duration {
	return time.Duration(c.Review.ClaimTTLHours) * time.Hour
}

// ValidateStandaloneJobs checks that jobs running outside the server process
// can invalidate the server's cache. A process-local cache cannot be.
func (c *Config) ValidateStandaloneJobs() error {
	if c.Cache.Type != "redis" {
		return fmt.Errorf("standalone jobs need the redis cache (cache type is %q); run the server with -scheduler instead", c.Cache.Type)
	}
	return nil
}
