package i18n

import (
	"strings"

	"github.com/steppeindustrial/corpsite/internal/domain"
)

// Config describes the locales a resolver understands.
type Config struct {
	DefaultLocale string
	Locales       []string
}

// FromModuleConfig builds a resolver config from runtime settings, falling
// back to the site defaults for empty values.
func FromModuleConfig(defaultLocale string, locales []string) Config {
	cfg := Config{
		DefaultLocale: strings.ToLower(strings.TrimSpace(defaultLocale)),
	}
	for _, locale := range locales {
		if code := strings.ToLower(strings.TrimSpace(locale)); code != "" {
			cfg.Locales = append(cfg.Locales, code)
		}
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = domain.DefaultLocale
	}
	if len(cfg.Locales) == 0 {
		cfg.Locales = append([]string(nil), domain.SupportedLocales...)
	}
	return cfg
}
