package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"

	LockModeLocal = "local"
	LockModeRedis = "redis"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Store       StoreConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Token       TokenConfig
	Scheduler   SchedulerConfig
	SMTP        SMTPConfig
	Buffer      BufferConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig

	location *time.Location
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type StoreConfig struct {
	Driver     string
	Postgres   PostgresConfig
	SQLitePath string
}

type PostgresConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// TokenConfig drives completion link minting and verification.
type TokenConfig struct {
	Secret  string
	Context string
	MaxAge  time.Duration
	BaseURL string
}

type SchedulerConfig struct {
	Enabled      bool
	Interval     time.Duration
	Workers      int
	Lock         string
	LockTTL      time.Duration
	Timezone     string
	StoreTimeout time.Duration
	PageSize     int
	SendTimeout  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLSMode  string
	Timeout  time.Duration
}

type BufferConfig struct {
	Path           string
	RetentionHours int
	BatchSize      int
	MaxRetry       int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "reminders"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getString("STORE_DRIVER", StoreDriverSQLite)),
			Postgres: PostgresConfig{
				URL:             os.Getenv("DATABASE_URL"),
				Host:            getString("DB_HOST", "localhost"),
				Port:            getString("DB_PORT", "5432"),
				Name:            getString("DB_NAME", "reminders"),
				User:            getString("DB_USER", "reminders"),
				Password:        os.Getenv("DB_PASSWORD"),
				MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
				MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
				SSLMode:         getString("DB_SSLMODE", "disable"),
			},
			SQLitePath: getString("SQLITE_PATH", "./data/reminders.db"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "reminders"),
		},
		Token: TokenConfig{
			Secret:  os.Getenv("TOKEN_SECRET"),
			Context: getString("TOKEN_CONTEXT", "reminder-completion"),
			MaxAge:  getDuration("TOKEN_MAX_AGE", 7*24*time.Hour),
			BaseURL: strings.TrimRight(getString("COMPLETION_BASE_URL", "http://localhost:8080"), "/"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      getBool("SCHEDULER_ENABLED", true),
			Interval:     getDuration("SCHEDULER_INTERVAL", 5*time.Minute),
			Workers:      getInt("SCHEDULER_WORKERS", 4),
			Lock:         strings.ToLower(getString("SCHEDULER_LOCK", LockModeLocal)),
			LockTTL:      getDuration("SCHEDULER_LOCK_TTL", 10*time.Minute),
			Timezone:     getString("SCHEDULER_TIMEZONE", "Asia/Kolkata"),
			StoreTimeout: getDuration("SCHEDULER_STORE_TIMEOUT", 30*time.Second),
			PageSize:     getInt("SCHEDULER_PAGE_SIZE", 100),
			SendTimeout:  getDuration("SCHEDULER_SEND_TIMEOUT", 30*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     getString("SMTP_HOST", "localhost"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			TLSMode:  strings.ToLower(getString("SMTP_TLS_MODE", "starttls")),
			Timeout:  getDuration("SMTP_TIMEOUT", 15*time.Second),
		},
		Buffer: BufferConfig{
			Path:           getString("BOLTDB_PATH", "./data/buffer.db"),
			RetentionHours: getInt("BUFFER_RETENTION_HOURS", 72),
			BatchSize:      getInt("BUFFER_BATCH_SIZE", 100),
			MaxRetry:       getInt("MAX_RETRY_ATTEMPTS", 5),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
		},
	}

	if cfg.Store.Postgres.URL == "" {
		cfg.Store.Postgres.URL = buildPostgresURL(cfg.Store.Postgres)
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects settings the service cannot run with and resolves the scheduler timezone.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Token.Secret) == "" {
		errs = append(errs, errors.New("TOKEN_SECRET is required"))
	}
	if c.Token.MaxAge <= 0 {
		errs = append(errs, errors.New("TOKEN_MAX_AGE must be positive"))
	}
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	switch c.Scheduler.Lock {
	case LockModeLocal, LockModeRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown SCHEDULER_LOCK %q", c.Scheduler.Lock))
	}
	switch c.SMTP.TLSMode {
	case "starttls", "tls", "opportunistic", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown SMTP_TLS_MODE %q", c.SMTP.TLSMode))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("SCHEDULER_INTERVAL must be positive"))
	}
	if c.Scheduler.Workers <= 0 {
		errs = append(errs, errors.New("SCHEDULER_WORKERS must be positive"))
	}

	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("unknown SCHEDULER_TIMEZONE %q: %w", c.Scheduler.Timezone, err))
	} else {
		c.location = loc
	}

	return errors.Join(errs...)
}

// Location returns the zone used for due-date evaluation.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		if loc, err := time.LoadLocation(c.Scheduler.Timezone); err == nil {
			c.location = loc
		} else {
			return time.UTC
		}
	}
	return c.location
}

func buildPostgresURL(cfg PostgresConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		cfg.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
