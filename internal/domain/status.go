package domain

import "strings"

// ParseStatus normalizes a raw status value. ok is false for anything other
// than draft or published.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusDraft:
		return StatusDraft, true
	case StatusPublished:
		return StatusPublished, true
	default:
		return "", false
	}
}

// ParseKind normalizes a kind name, accepting plural collection names used in
// URLs ("services", "projects").
func ParseKind(raw string) (Kind, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, kind := range Kinds {
		if value == string(kind) || value == string(kind)+"s" {
			return kind, true
		}
	}
	if value == "catalogs" || value == "products" {
		return KindCatalog, true
	}
	return "", false
}

// IsSupportedLocale reports whether code is one of the site locales.
func IsSupportedLocale(code string) bool {
	for _, locale := range SupportedLocales {
		if locale == code {
			return true
		}
	}
	return false
}

// Statuses returns every known status.
func Statuses() []Status {
	return []Status{StatusDraft, StatusPublished}
}
