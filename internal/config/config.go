package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Значения по умолчанию.
const (
	DefaultBaseURL            = "localhost:8081"
	DefaultSyncInterval       = 30 * time.Second
	DefaultRequestAttempts    = 3
	DefaultRequestBaseTimeout = 5 * time.Second
	DefaultRequestMaxTimeout  = 30 * time.Second
	DefaultRateLimitRPS       = 20
	DefaultRateLimitBurst     = 40
	DefaultPushKeyTTL         = 24 * time.Hour
)

type Config struct {
	// Server-side settings
	DatabaseDSN    string        `env:"DATABASE_URI"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST"`
	PushKeyTTL     time.Duration `env:"PUSH_KEY_TTL"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`
	LogFile     string `env:"LOG_FILE"`
	Verbose     bool   `env:"VERBOSE"`

	// Client-side settings
	ServerURL          string        `env:"-"`
	ClientDBPath       string        `env:"CLIENT_DB_PATH"`
	SyncInterval       time.Duration `env:"SYNC_INTERVAL"`
	RequestAttempts    int           `env:"REQUEST_ATTEMPTS"`
	RequestBaseTimeout time.Duration `env:"REQUEST_BASE_TIMEOUT"`
	RequestMaxTimeout  time.Duration `env:"REQUEST_MAX_TIMEOUT"`
	Version            bool          `env:"-"` // show client version and exit (flag only)
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// значения из env становятся значениями флагов по умолчанию
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres DSN или путь к sqlite)")
	flag.Float64Var(&cfg.RateLimitRPS, "rate-limit", cfg.RateLimitRPS, "requests per second allowed per client IP")
	flag.IntVar(&cfg.RateLimitBurst, "rate-burst", cfg.RateLimitBurst, "rate limiter burst size")
	flag.DurationVar(&cfg.PushKeyTTL, "push-key-ttl", cfg.PushKeyTTL, "how long push idempotency keys are kept")
	// Shared flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "address of the Flomo sync server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to a rotating file")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose (debug) logging")
	// Client flags
	flag.StringVar(&cfg.ClientDBPath, "client-db", cfg.ClientDBPath, "path to client SQLite DB")
	flag.DurationVar(&cfg.SyncInterval, "sync-interval", cfg.SyncInterval, "auto sync period")
	flag.IntVar(&cfg.RequestAttempts, "attempts", cfg.RequestAttempts, "attempts per sync request")
	flag.DurationVar(&cfg.RequestBaseTimeout, "request-timeout", cfg.RequestBaseTimeout, "timeout of the first request attempt")
	flag.DurationVar(&cfg.RequestMaxTimeout, "request-max-timeout", cfg.RequestMaxTimeout, "upper bound for a request attempt timeout")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	// BaseURL: только "address:port" (без схемы и пути), иначе значение по умолчанию
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = DefaultRateLimitRPS
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = DefaultRateLimitBurst
	}
	if cfg.PushKeyTTL <= 0 {
		cfg.PushKeyTTL = DefaultPushKeyTTL
	}

	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.RequestAttempts <= 0 {
		cfg.RequestAttempts = DefaultRequestAttempts
	}
	if cfg.RequestBaseTimeout <= 0 {
		cfg.RequestBaseTimeout = DefaultRequestBaseTimeout
	}
	if cfg.RequestMaxTimeout < cfg.RequestBaseTimeout {
		cfg.RequestMaxTimeout = max(DefaultRequestMaxTimeout, cfg.RequestBaseTimeout)
	}

	if cfg.ClientDBPath == "" {
		home, _ := os.UserHomeDir()
		cfg.ClientDBPath = filepath.Join(home, ".flomo", "flomo.db")
	}
}
