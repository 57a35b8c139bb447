package runtimeconfig

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/steppeindustrial/corpsite/internal/domain"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CORPSITE_"

var (
	ErrDefaultLocaleUnsupported = errors.New("corpsite config: default locale is not in the locale list")
	ErrLocaleUnsupported        = errors.New("corpsite config: locale is not supported")
	ErrStorageProviderUnknown   = errors.New("corpsite config: storage provider is invalid")
	ErrStorageDriverUnknown     = errors.New("corpsite config: storage driver is invalid")
	ErrStorageDSNRequired       = errors.New("corpsite config: storage dsn is required for the bun provider")
	ErrCacheProviderUnknown     = errors.New("corpsite config: cache provider is invalid")
	ErrCacheRedisAddrRequired   = errors.New("corpsite config: redis address is required for the redis cache provider")
	ErrContactLimitInvalid      = errors.New("corpsite config: contact limit must be positive")
	ErrContactWindowInvalid     = errors.New("corpsite config: contact window must be positive")
	ErrContactLimiterUnknown    = errors.New("corpsite config: contact limiter is invalid")
	ErrAuthSecretRequired       = errors.New("corpsite config: auth secret is required")
	ErrHTTPAddrRequired         = errors.New("corpsite config: http address is required")
	ErrLoggingProviderUnknown   = errors.New("corpsite config: logging provider is invalid")
	ErrLoggingLevelInvalid      = errors.New("corpsite config: logging level is invalid")
	ErrLoggingFormatInvalid     = errors.New("corpsite config: logging format is invalid")
)

// Config aggregates the runtime settings of the site backend.
type Config struct {
	DefaultLocale string   `env:"DEFAULT_LOCALE"`
	Locales       []string `env:"LOCALES" envSeparator:","`

	Storage  StorageConfig  `envPrefix:"STORAGE_"`
	Cache    CacheConfig    `envPrefix:"CACHE_"`
	Contact  ContactConfig  `envPrefix:"CONTACT_"`
	Auth     AuthConfig     `envPrefix:"AUTH_"`
	HTTP     HTTPConfig     `envPrefix:"HTTP_"`
	Markdown MarkdownConfig `envPrefix:"MARKDOWN_"`
	Logging  LoggingConfig  `envPrefix:"LOG_"`
}

// StorageConfig selects the repositories. Provider "memory" keeps everything
// in process; "bun" uses Driver and DSN.
type StorageConfig struct {
	Provider string `env:"PROVIDER"`
	Driver   string `env:"DRIVER"`
	DSN      string `env:"DSN"`
	// Migrate creates missing tables on start.
	Migrate bool `env:"MIGRATE"`
	// RepositoryCache enables the go-repository-cache layer on bun reads.
	RepositoryCache bool `env:"REPOSITORY_CACHE"`
}

// CacheConfig controls the read cache coordinator.
type CacheConfig struct {
	Enabled   bool          `env:"ENABLED"`
	TTL       time.Duration `env:"TTL"`
	Provider  string        `env:"PROVIDER"`
	RedisAddr string        `env:"REDIS_ADDR"`
	Prefix    string        `env:"PREFIX"`
}

// ContactConfig controls contact intake throttling.
type ContactConfig struct {
	Limit         int           `env:"LIMIT"`
	Window        time.Duration `env:"WINDOW"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`
	// Limiter is "memory" for a single instance or "redis" when several
	// instances share one budget.
	Limiter   string `env:"LIMITER"`
	RedisAddr string `env:"REDIS_ADDR"`
}

// AuthConfig verifies admin bearer tokens.
type AuthConfig struct {
	Secret string `env:"SECRET"`
	Issuer string `env:"ISSUER"`
}

type HTTPConfig struct {
	Addr              string        `env:"ADDR"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"`
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool `env:"TRUST_PROXY"`
}

// MarkdownConfig controls rendering of Markdown fields and the seed directory.
type MarkdownConfig struct {
	Extensions []string `env:"EXTENSIONS" envSeparator:","`
	HardWraps  bool     `env:"HARD_WRAPS"`
	AllowHTML  bool     `env:"ALLOW_HTML"`
	SeedDir    string   `env:"SEED_DIR"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `env:"PROVIDER"`
	Level     string   `env:"LEVEL"`
	Format    string   `env:"FORMAT"`
	AddSource bool     `env:"ADD_SOURCE"`
	Focus     []string `env:"FOCUS" envSeparator:","`
}

// DefaultConfig returns settings suitable for a local single-instance run.
func DefaultConfig() Config {
	return Config{
		DefaultLocale: domain.DefaultLocale,
		Locales:       slices.Clone(domain.SupportedLocales),
		Storage: StorageConfig{
			Provider: "memory",
			Driver:   "sqlite",
		},
		Cache: CacheConfig{
			Enabled:  true,
			TTL:      5 * time.Minute,
			Provider: "memory",
			Prefix:   "corpsite",
		},
		Contact: ContactConfig{
			Limit:         3,
			Window:        15 * time.Minute,
			SweepInterval: time.Minute,
			Limiter:       "memory",
		},
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Markdown: MarkdownConfig{
			SeedDir: "seed",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Load overlays CORPSITE_* environment variables on DefaultConfig and
// validates the result.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom is Load with an explicit environment; nil reads the process
// environment.
func LoadFrom(environment map[string]string) (Config, error) {
	cfg := DefaultConfig()
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs consistency checks across sections.
func (cfg Config) Validate() error {
	for _, locale := range cfg.Locales {
		if !domain.IsSupportedLocale(strings.ToLower(strings.TrimSpace(locale))) {
			return fmt.Errorf("%w: %s", ErrLocaleUnsupported, locale)
		}
	}
	if len(cfg.Locales) > 0 && !slices.Contains(cfg.Locales, cfg.DefaultLocale) {
		return fmt.Errorf("%w: %s", ErrDefaultLocaleUnsupported, cfg.DefaultLocale)
	}

	switch normalize(cfg.Storage.Provider) {
	case "memory":
	case "bun":
		switch normalize(cfg.Storage.Driver) {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
		}
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return ErrStorageDSNRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, cfg.Storage.Provider)
	}

	if cfg.Cache.Enabled {
		switch normalize(cfg.Cache.Provider) {
		case "memory":
		case "redis":
			if strings.TrimSpace(cfg.Cache.RedisAddr) == "" {
				return ErrCacheRedisAddrRequired
			}
		default:
			return fmt.Errorf("%w: %s", ErrCacheProviderUnknown, cfg.Cache.Provider)
		}
	}

	if cfg.Contact.Limit <= 0 {
		return ErrContactLimitInvalid
	}
	if cfg.Contact.Window <= 0 {
		return ErrContactWindowInvalid
	}
	switch normalize(cfg.Contact.Limiter) {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.Contact.RedisAddr) == "" && strings.TrimSpace(cfg.Cache.RedisAddr) == "" {
			return ErrCacheRedisAddrRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrContactLimiterUnknown, cfg.Contact.Limiter)
	}

	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return ErrHTTPAddrRequired
	}

	switch normalize(cfg.Logging.Provider) {
	case "console", "gologger":
	default:
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, cfg.Logging.Provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if normalize(cfg.Logging.Provider) == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

// RequireAuth reports ErrAuthSecretRequired when the admin surface cannot
// verify tokens. The seed tool runs without it.
func (cfg Config) RequireAuth() error {
	if strings.TrimSpace(cfg.Auth.Secret) == "" {
		return ErrAuthSecretRequired
	}
	return nil
}

// ContactRedisAddr returns the redis address of the contact limiter,
// defaulting to the cache address.
func (cfg Config) ContactRedisAddr() string {
	if addr := strings.TrimSpace(cfg.Contact.RedisAddr); addr != "" {
		return addr
	}
	return strings.TrimSpace(cfg.Cache.RedisAddr)
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
