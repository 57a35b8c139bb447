package runtimeconfig_test

import (
	"errors"
	"testing"
	"time"

	"github.com/steppeindustrial/corpsite/internal/runtimeconfig"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := runtimeconfig.DefaultConfig().Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
}

func TestLoadFromOverlaysEnvironment(t *testing.T) {
	cfg, err := runtimeconfig.LoadFrom(map[string]string{
		"CORPSITE_DEFAULT_LOCALE":      "ru",
		"CORPSITE_LOCALES":             "en,ru,kk",
		"CORPSITE_STORAGE_PROVIDER":    "bun",
		"CORPSITE_STORAGE_DSN":         "file:corpsite.db",
		"CORPSITE_CONTACT_WINDOW":      "30m",
		"CORPSITE_LOG_FOCUS":           "corpsite.contact,corpsite.http",
		"CORPSITE_MARKDOWN_HARD_WRAPS": "true",
	})
	if err != nil {
		t.Fatalf("LoadFrom() returned unexpected error: %v", err)
	}
	if cfg.DefaultLocale != "ru" || cfg.Storage.Provider != "bun" || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Contact.Window != 30*time.Minute || cfg.Contact.Limit != 3 {
		t.Fatalf("unexpected contact config %+v", cfg.Contact)
	}
	if len(cfg.Logging.Focus) != 2 || !cfg.Markdown.HardWraps {
		t.Fatalf("unexpected logging/markdown config %+v %+v", cfg.Logging, cfg.Markdown)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*runtimeconfig.Config)
		want   error
	}{
		{"unsupported locale", func(c *runtimeconfig.Config) { c.Locales = []string{"en", "de"} }, runtimeconfig.ErrLocaleUnsupported},
		{"default outside list", func(c *runtimeconfig.Config) { c.Locales = []string{"ru"} }, runtimeconfig.ErrDefaultLocaleUnsupported},
		{"unknown storage", func(c *runtimeconfig.Config) { c.Storage.Provider = "mongo" }, runtimeconfig.ErrStorageProviderUnknown},
		{"bun without dsn", func(c *runtimeconfig.Config) { c.Storage.Provider = "bun" }, runtimeconfig.ErrStorageDSNRequired},
		{"bad driver", func(c *runtimeconfig.Config) {
			c.Storage.Provider, c.Storage.Driver, c.Storage.DSN = "bun", "mysql", "x"
		}, runtimeconfig.ErrStorageDriverUnknown},
		{"redis cache without addr", func(c *runtimeconfig.Config) { c.Cache.Provider = "redis" }, runtimeconfig.ErrCacheRedisAddrRequired},
		{"zero limit", func(c *runtimeconfig.Config) { c.Contact.Limit = 0 }, runtimeconfig.ErrContactLimitInvalid},
		{"zero window", func(c *runtimeconfig.Config) { c.Contact.Window = 0 }, runtimeconfig.ErrContactWindowInvalid},
		{"unknown limiter", func(c *runtimeconfig.Config) { c.Contact.Limiter = "disk" }, runtimeconfig.ErrContactLimiterUnknown},
		{"logging provider", func(c *runtimeconfig.Config) { c.Logging.Provider = "syslog" }, runtimeconfig.ErrLoggingProviderUnknown},
		{"logging level", func(c *runtimeconfig.Config) { c.Logging.Level = "loud" }, runtimeconfig.ErrLoggingLevelInvalid},
		{"logging format", func(c *runtimeconfig.Config) {
			c.Logging.Provider, c.Logging.Format = "gologger", "xml"
		}, runtimeconfig.ErrLoggingFormatInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := runtimeconfig.DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	if !errors.Is(cfg.RequireAuth(), runtimeconfig.ErrAuthSecretRequired) {
		t.Fatal("expected missing secret error")
	}
	cfg.Auth.Secret = "s3cret"
	if err := cfg.RequireAuth(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
