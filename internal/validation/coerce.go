package validation

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CoerceString accepts strings and nil. The result is trimmed.
func CoerceString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	default:
		return "", ozzo.NewError(CodeInvalidType, "must be a string")
	}
}

// CoerceInt accepts integers, integral JSON numbers and numeric strings.
// Empty values report ok=false.
func CoerceInt(value any) (n int, ok bool, err error) {
	switch v := value.(type) {
	case nil:
		return 0, false, nil
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case int32:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, ozzo.NewError(CodeInvalidType, "must be a whole number")
		}
		return int(v), true, nil
	case json.Number:
		parsed, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, false, ozzo.NewError(CodeInvalidType, "must be a whole number")
		}
		return parsed, true, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false, nil
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, false, ozzo.NewError(CodeInvalidType, "must be a whole number")
		}
		return parsed, true, nil
	default:
		return 0, false, ozzo.NewError(CodeInvalidType, "must be a whole number")
	}
}

// CoerceBool accepts booleans, 0/1 numbers and common string spellings.
func CoerceBool(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case float64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case json.Number:
		return CoerceBool(v.String())
	case int:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "no", "off":
			return false, nil
		case "1", "true", "yes", "on":
			return true, nil
		}
	}
	return false, ozzo.NewError(CodeInvalidType, "must be a boolean")
}

// CoerceDate parses date-like strings into UTC timestamps. Empty values
// become nil.
func CoerceDate(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		utc := v.UTC()
		return &utc, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		utc := v.UTC()
		return &utc, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				utc := parsed.UTC()
				return &utc, nil
			}
		}
		return nil, ozzo.NewError(CodeInvalidDate, "must be a date (YYYY-MM-DD) or RFC3339 timestamp")
	default:
		return nil, ozzo.NewError(CodeInvalidDate, "must be a date (YYYY-MM-DD) or RFC3339 timestamp")
	}
}

// IsURL is an ozzo rule accepting absolute http(s) URLs and site-relative
// paths. Empty strings pass.
var IsURL = ozzo.By(func(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ozzo.NewError(CodeInvalidURL, "must be an http(s) URL or a site path")
	}
	return nil
})
