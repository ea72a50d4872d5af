package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds settings for both binaries. The server reads the top-level,
// Mongo, Redis and Admin sections; tabctl reads Client and Reminder.
type Config struct {
	Port      string        `env:"PORT,      default=8000"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=12h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// AuditWorkers is the number of audit dispatcher shards.
	AuditWorkers int `env:"AUDIT_WORKERS, default=4"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Admin    AdminConfig
	Client   ClientConfig
	Reminder ReminderConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=kathulis"`
}

type RedisConfig struct {
	Addr        string        `env:"REDIS_ADDR,         default=localhost:6379"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB,           default=0"`
	SnapshotTTL time.Duration `env:"REDIS_SNAPSHOT_TTL, default=5m"`
}

// AdminConfig holds the single venue-owner login.
type AdminConfig struct {
	Name     string `env:"ADMIN_NAME, default=Thuli"`
	Password string `env:"ADMIN_PASSWORD"`
}

// ClientConfig is read by tabctl. Flags override the login fields.
type ClientConfig struct {
	BaseURL  string        `env:"TAB_API_URL,     default=http://127.0.0.1:8000"`
	Timeout  time.Duration `env:"TAB_API_TIMEOUT, default=15s"`
	User     string        `env:"TAB_USER"`
	Password string        `env:"TAB_PASSWORD"`
	Role     string        `env:"TAB_ROLE,        default=admin"`
}

type ReminderConfig struct {
	CountryCode string `env:"REMINDER_COUNTRY_CODE, default=27"`
	Currency    string `env:"REMINDER_CURRENCY,     default=R"`
	Venue       string `env:"REMINDER_VENUE,        default=KaThuli's Tavern"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadContext(context.Background())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadContext is Load without the panic, for callers that report errors.
func LoadContext(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom reads configuration from an explicit lookuper (tests).
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
