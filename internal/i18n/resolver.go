package i18n

import (
	"reflect"
	"strings"
)

// Values holds the per-locale values of a single localized field.
type Values map[string]any

// Resolve picks the value for requested, falling back to the default locale
// when the requested value is empty. The default-locale value is returned even
// when it is empty itself; there is no further cascade. usedFallback reports
// whether a value other than the requested locale's was returned.
func Resolve(values Values, requested, defaultLocale string) (any, bool) {
	if value, ok := values[requested]; ok && !IsBlank(value) {
		return value, false
	}
	return values[defaultLocale], requested != defaultLocale
}

// IsBlank reports whether a value counts as empty for fallback purposes:
// nil, whitespace-only strings and empty collections.
func IsBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case *string:
		return v == nil || strings.TrimSpace(*v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// Resolver binds the resolution rule to a configured locale set.
type Resolver struct {
	defaultLocale string
	supported     map[string]struct{}
}

// NewResolver returns a resolver for cfg.
func NewResolver(cfg Config) *Resolver {
	cfg = FromModuleConfig(cfg.DefaultLocale, cfg.Locales)
	supported := make(map[string]struct{}, len(cfg.Locales)+1)
	for _, locale := range cfg.Locales {
		supported[locale] = struct{}{}
	}
	supported[cfg.DefaultLocale] = struct{}{}
	return &Resolver{defaultLocale: cfg.DefaultLocale, supported: supported}
}

// DefaultLocale returns the terminal fallback locale.
func (r *Resolver) DefaultLocale() string {
	return r.defaultLocale
}

// Supports reports whether code is a configured locale.
func (r *Resolver) Supports(code string) bool {
	_, ok := r.supported[code]
	return ok
}

// Normalize maps a requested locale code onto a supported one. Region tags are
// dropped ("ru-RU" becomes "ru") and anything unknown resolves to the default
// locale.
func (r *Resolver) Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if idx := strings.IndexAny(code, "-_"); idx > 0 {
		code = code[:idx]
	}
	if r.Supports(code) {
		return code
	}
	return r.defaultLocale
}

// Resolve applies the fallback rule using the configured default locale.
func (r *Resolver) Resolve(values Values, requested string) (any, bool) {
	return Resolve(values, requested, r.defaultLocale)
}

// ResolveFields resolves every named field and returns the resolved values
// together with the set of fields served from the default locale.
func (r *Resolver) ResolveFields(fields []string, values map[string]Values, requested string) (map[string]any, map[string]bool) {
	resolved := make(map[string]any, len(fields))
	var fallback map[string]bool
	for _, field := range fields {
		value, usedFallback := r.Resolve(values[field], requested)
		resolved[field] = value
		if usedFallback {
			if fallback == nil {
				fallback = make(map[string]bool)
			}
			fallback[field] = true
		}
	}
	return resolved, fallback
}
