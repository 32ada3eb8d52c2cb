package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Server captures the console process configuration.
type Server struct {
	Addr            string        `env:"CONSOLE_ADDR" envDefault:":8080"`
	APIBaseURL      string        `env:"CONSOLE_API_BASE_URL" envDefault:"http://localhost:9090/api/admin"`
	APITimeout      time.Duration `env:"CONSOLE_API_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"CONSOLE_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"CONSOLE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AdminToken      string        `env:"CONSOLE_ADMIN_TOKEN"`
	LogLevel        string        `env:"CONSOLE_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"CONSOLE_LOG_FORMAT" envDefault:"json"`
	OTelEndpoint    string        `env:"CONSOLE_OTEL_ENDPOINT"`

	Circuit   Circuit     `envPrefix:"CONSOLE_CIRCUIT_"`
	Form      Form        `envPrefix:"CONSOLE_FORM_"`
	Cache     Cache       `envPrefix:"CONSOLE_CACHE_"`
	Redis     RedisConfig `envPrefix:"CONSOLE_REDIS_"`
	RateLimit RateLimit   `envPrefix:"CONSOLE_RATELIMIT_"`
}

// Circuit tunes the breaker in front of the admin API.
type Circuit struct {
	Threshold int           `env:"THRESHOLD" envDefault:"5"`
	Cooldown  time.Duration `env:"COOLDOWN" envDefault:"30s"`
}

// Form tunes the creation form validation engine.
type Form struct {
	Debounce        time.Duration `env:"DEBOUNCE" envDefault:"500ms"`
	CheckTimeout    time.Duration `env:"CHECK_TIMEOUT" envDefault:"5s"`
	IdleTTL         time.Duration `env:"IDLE_TTL" envDefault:"30m"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m"`
}

// Cache tunes the user list cache.
type Cache struct {
	TTL time.Duration `env:"TTL" envDefault:"1m"`
}

// RateLimit bounds console requests per client IP.
type RateLimit struct {
	Disabled bool          `env:"DISABLED"`
	Requests int           `env:"REQUESTS" envDefault:"300"`
	Window   time.Duration `env:"WINDOW" envDefault:"1m"`
}

// RedisConfig configures the optional shared list cache. An empty URL keeps
// the cache in process.
type RedisConfig struct {
	URL          string        `env:"URL"`
	Key          string        `env:"KEY" envDefault:"console:users:list"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// FromEnv loads an optional .env file (CONSOLE_ENV_FILE, default ".env") and
// parses the configuration from the environment. Variables already set win
// over the file.
func FromEnv() (Server, error) {
	path := os.Getenv("CONSOLE_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Server{}, fmt.Errorf("load %s: %w", path, err)
	}
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the process cannot start with.
func (c Server) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CONSOLE_API_BASE_URL must be an absolute http(s) URL, got %q", c.APIBaseURL)
	}
	if c.APITimeout <= 0 {
		return errors.New("CONSOLE_API_TIMEOUT must be positive")
	}
	if c.Circuit.Threshold < 1 {
		return errors.New("CONSOLE_CIRCUIT_THRESHOLD must be at least 1")
	}
	if c.Form.Debounce < 0 {
		return errors.New("CONSOLE_FORM_DEBOUNCE must not be negative")
	}
	if c.Form.IdleTTL <= 0 || c.Form.CleanupInterval <= 0 {
		return errors.New("form idle TTL and cleanup interval must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("CONSOLE_RATELIMIT_WINDOW must be positive")
	}
	if !c.RateLimit.Disabled && c.RateLimit.Requests < 1 {
		return errors.New("CONSOLE_RATELIMIT_REQUESTS must be at least 1")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("CONSOLE_LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}
