// Package config loads service settings from the environment, an optional
// .env file and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved service configuration.
type Config struct {
	Port        string
	CORSOrigins []string
	AdminToken  string

	Database  Database
	Log       Log
	Slots     Slots
	RateLimit RateLimit
	Redis     Redis
	AMQP      AMQP
}

// Database holds PostgreSQL connection settings.
type Database struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// DSN returns URL when set, otherwise a libpq-style connection string.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Redacted returns the DSN without its password, for logging.
func (d Database) Redacted() string {
	if d.URL != "" {
		if u, err := url.Parse(d.URL); err == nil {
			return u.Redacted()
		}
		return "<unparseable DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%s dbname=%s", d.Host, d.Port, d.Name)
}

type Log struct {
	Level  string
	Format string
}

// Slots configures reservation and allocation policy.
type Slots struct {
	ReservationWindow time.Duration
	ConflictRetries   int
	SweepInterval     time.Duration
}

type RateLimit struct {
	Enabled bool
	Backend string
	RPS     float64
	Burst   int
	Window  time.Duration
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type AMQP struct {
	URL      string
	Exchange string
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("ADMIN_TOKEN", "")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tournaments")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 20)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RESERVATION_WINDOW", "15m")
	v.SetDefault("CONFLICT_RETRIES", 1)
	v.SetDefault("SWEEP_INTERVAL", "1m")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_BACKEND", BackendMemory)
	v.SetDefault("RATE_LIMIT_RPS", 0.2)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "registration.decisions")
}

// Load reads .env (without overriding variables already set), then
// config.yaml if present, then the environment.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:        v.GetString("PORT"),
		CORSOrigins: parseCSV(v.GetString("CORS_ORIGINS")),
		AdminToken:  v.GetString("ADMIN_TOKEN"),
		Database: Database{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Slots: Slots{
			ReservationWindow: v.GetDuration("RESERVATION_WINDOW"),
			ConflictRetries:   v.GetInt("CONFLICT_RETRIES"),
			SweepInterval:     v.GetDuration("SWEEP_INTERVAL"),
		},
		RateLimit: RateLimit{
			Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("RATE_LIMIT_BACKEND"))),
			RPS:     v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:   v.GetInt("RATE_LIMIT_BURST"),
			Window:  v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		AMQP: AMQP{
			URL:      v.GetString("AMQP_URL"),
			Exchange: v.GetString("AMQP_EXCHANGE"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.Slots.ReservationWindow <= 0 {
		errs = append(errs, errors.New("RESERVATION_WINDOW must be positive"))
	}
	if c.Slots.ConflictRetries < 0 {
		errs = append(errs, errors.New("CONFLICT_RETRIES must not be negative"))
	}
	if c.Slots.SweepInterval < 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must not be negative"))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case BackendMemory:
			if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
				errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
			}
		case BackendRedis:
			if c.RateLimit.Burst <= 0 || c.RateLimit.Window <= 0 {
				errs = append(errs, errors.New("RATE_LIMIT_BURST and RATE_LIMIT_WINDOW must be positive"))
			}
			if c.Redis.Addr == "" {
				errs = append(errs, errors.New("REDIS_ADDR is required for the redis rate limit backend"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend))
		}
	}
	return errors.Join(errs...)
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
