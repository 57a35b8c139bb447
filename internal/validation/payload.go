package validation

import (
	"sort"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-slug"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/schema"
)

// Payload is a validated and coerced admin payload.
type Payload struct {
	// Locale is the target locale of a rows-layout payload. It is empty for
	// suffixed payloads and for updates that leave the locale untouched.
	Locale string
	// Shared holds non-localized values present in the payload.
	Shared map[string]any
	// Localized holds localized values present in the payload, per locale.
	// Rows payloads that omit the locale file their values under "", meaning
	// the row being updated.
	Localized map[string]map[string]any
}

// Value returns a shared value and whether the payload supplied it.
func (p *Payload) Value(field string) (any, bool) {
	if p == nil {
		return nil, false
	}
	value, ok := p.Shared[field]
	return value, ok
}

// Locales returns the locales with localized values, sorted.
func (p *Payload) Locales() []string {
	locales := make([]string, 0, len(p.Localized))
	for locale := range p.Localized {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales
}

// Validator checks admin payloads against kind descriptors. Every failure is
// collected before returning so callers see the complete list.
type Validator struct {
	locales       []string
	defaultLocale string
}

// NewValidator returns a validator for the given locale set.
func NewValidator(locales []string, defaultLocale string) *Validator {
	if defaultLocale == "" {
		defaultLocale = domain.DefaultLocale
	}
	if len(locales) == 0 {
		locales = domain.SupportedLocales
	}
	return &Validator{locales: append([]string(nil), locales...), defaultLocale: defaultLocale}
}

// Create validates a full payload. Required fields must be present and common
// fields receive their defaults.
func (v *Validator) Create(desc schema.Descriptor, raw map[string]any) (*Payload, error) {
	return v.validate(desc, raw, false)
}

// Update validates a partial payload. Only the supplied keys are checked;
// required fields may be omitted but not blanked.
func (v *Validator) Update(desc schema.Descriptor, raw map[string]any) (*Payload, error) {
	return v.validate(desc, raw, true)
}

func (v *Validator) validate(desc schema.Descriptor, raw map[string]any, partial bool) (*Payload, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	out := &Payload{
		Shared:    map[string]any{},
		Localized: map[string]map[string]any{},
	}
	errs := ozzo.Errors{}

	if desc.Layout != schema.LayoutSuffixed {
		v.validateLocale(raw, partial, out, errs)
	}

	for _, field := range desc.AllFields() {
		if !field.Localized {
			v.validateShared(field, raw, partial, out, errs)
			continue
		}
		if desc.Layout == schema.LayoutSuffixed {
			v.validateSuffixed(field, raw, partial, out, errs)
			continue
		}
		v.validateLocalizedKey(field, field.Name, raw, partial, field.Required, out.Locale, out, errs)
	}

	if !partial {
		applyDefaults(out)
	}

	if err := FromOzzo(errs); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *Validator) validateLocale(raw map[string]any, partial bool, out *Payload, errs ozzo.Errors) {
	value, present := raw[schema.FieldLocale]
	if !present && partial {
		return
	}
	locale, err := CoerceString(value)
	if err != nil {
		errs[schema.FieldLocale] = err
		return
	}
	locale = strings.ToLower(locale)
	if err := ozzo.Validate(locale, ozzo.Required, ozzo.In(toAny(v.locales)...).Error("must be one of "+strings.Join(v.locales, ", "))); err != nil {
		errs[schema.FieldLocale] = err
		return
	}
	out.Locale = locale
}

func (v *Validator) validateShared(field schema.Field, raw map[string]any, partial bool, out *Payload, errs ozzo.Errors) {
	value, present := raw[field.Name]
	if !present {
		if field.Required && !partial {
			errs[field.Name] = ozzo.ErrRequired
		}
		return
	}
	coerced, set, err := coerceField(field, value, partial)
	if err != nil {
		errs[field.Name] = err
		return
	}
	if set {
		out.Shared[field.Name] = coerced
	}
}

func (v *Validator) validateSuffixed(field schema.Field, raw map[string]any, partial bool, out *Payload, errs ozzo.Errors) {
	for _, locale := range v.locales {
		key := field.Name + "_" + locale
		if _, present := raw[key]; !present && locale == v.defaultLocale {
			if _, plain := raw[field.Name]; plain {
				key = field.Name
			}
		}
		required := field.Required && locale == v.defaultLocale
		v.validateLocalizedKey(field, key, raw, partial, required, locale, out, errs)
	}
}

func (v *Validator) validateLocalizedKey(field schema.Field, key string, raw map[string]any, partial, required bool, locale string, out *Payload, errs ozzo.Errors) {
	value, present := raw[key]
	if !present {
		if required && !partial {
			errs[key] = ozzo.ErrRequired
		}
		return
	}
	field.Required = required
	coerced, set, err := coerceField(field, value, partial)
	if err != nil {
		errs[key] = err
		return
	}
	if !set {
		return
	}
	values := out.Localized[locale]
	if values == nil {
		values = map[string]any{}
		out.Localized[locale] = values
	}
	values[field.Name] = coerced
}

// coerceField converts and checks a present value. set is false when the
// value should not be written (an empty optional integer).
func coerceField(field schema.Field, value any, partial bool) (any, bool, error) {
	switch field.Type {
	case schema.TypeInt:
		n, ok, err := CoerceInt(value)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if field.Required {
				return nil, false, ozzo.ErrRequired
			}
			if field.Name == schema.FieldOrderIndex {
				return 0, true, nil
			}
			return nil, true, nil
		}
		return n, true, nil
	case schema.TypeBool:
		b, err := CoerceBool(value)
		if err != nil {
			return nil, false, err
		}
		return b, true, nil
	case schema.TypeDate:
		ts, err := CoerceDate(value)
		if err != nil {
			return nil, false, err
		}
		if ts == nil {
			if field.Required {
				return nil, false, ozzo.ErrRequired
			}
			return nil, true, nil
		}
		return *ts, true, nil
	}

	text, err := CoerceString(value)
	if err != nil {
		return nil, false, err
	}
	switch field.Type {
	case schema.TypeEnum:
		text = strings.ToLower(text)
	case schema.TypeSlug:
		if text == "" {
			if partial {
				return nil, false, ozzo.NewError(CodeInvalidSlug, "cannot be blank")
			}
			return nil, false, nil
		}
		normalized, err := slug.Normalize(text)
		if err != nil {
			return nil, false, ozzo.NewError(CodeInvalidSlug, "must contain lowercase letters, digits and dashes")
		}
		text = normalized
	}
	if err := ozzo.Validate(text, stringRules(field)...); err != nil {
		return nil, false, err
	}
	if field.Type == schema.TypeEnum && text == "" {
		if field.Name == schema.FieldStatus {
			return nil, false, nil
		}
		return nil, true, nil
	}
	return text, true, nil
}

func stringRules(field schema.Field) []ozzo.Rule {
	var rules []ozzo.Rule
	if field.Required {
		rules = append(rules, ozzo.Required)
	}
	if field.MinLength > 0 || field.MaxLength > 0 {
		rules = append(rules, ozzo.RuneLength(field.MinLength, field.MaxLength))
	}
	switch field.Type {
	case schema.TypeEnum:
		rules = append(rules, ozzo.In(toAny(field.Enum)...).Error("must be one of "+strings.Join(field.Enum, ", ")))
	case schema.TypeURL:
		rules = append(rules, IsURL)
	case schema.TypeSlug:
		rules = append(rules, ozzo.Match(slugPattern).ErrorObject(ozzo.NewError(CodeInvalidSlug, "must contain lowercase letters, digits and dashes")))
	}
	return rules
}

func applyDefaults(out *Payload) {
	if _, ok := out.Shared[schema.FieldStatus]; !ok || out.Shared[schema.FieldStatus] == "" {
		out.Shared[schema.FieldStatus] = string(domain.StatusDraft)
	}
	if _, ok := out.Shared[schema.FieldOrderIndex]; !ok {
		out.Shared[schema.FieldOrderIndex] = 0
	}
	if _, ok := out.Shared[schema.FieldFeatured]; !ok {
		out.Shared[schema.FieldFeatured] = false
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}
