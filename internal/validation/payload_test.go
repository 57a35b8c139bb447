package validation_test

import (
	"errors"
	"testing"
	"time"

	"github.com/steppeindustrial/corpsite/internal/schema"
	"github.com/steppeindustrial/corpsite/internal/validation"
)

func newValidator() *validation.Validator {
	return validation.NewValidator([]string{"en", "ru", "kk"}, "en")
}

func fieldCodes(t *testing.T, err error) map[string]string {
	t.Helper()
	if !errors.Is(err, validation.ErrInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
	out := map[string]string{}
	for _, field := range validation.Fields(err) {
		out[field.Field] = field.Code
	}
	return out
}

func TestCreateCollectsEveryFailure(t *testing.T) {
	_, err := newValidator().Create(schema.ProjectDescriptor(), map[string]any{
		"locale":         "de",
		"title":          "   ",
		"year":           "twenty",
		"project_status": "abandoned",
		"started_at":     "yesterday",
		"image_url":      "ftp://example.com/a.png",
	})

	codes := fieldCodes(t, err)
	for _, field := range []string{"locale", "title", "year", "project_status", "started_at", "image_url"} {
		if _, ok := codes[field]; !ok {
			t.Fatalf("expected failure for %s, got %v", field, codes)
		}
	}
	if codes["started_at"] != validation.CodeInvalidDate {
		t.Fatalf("unexpected date code %q", codes["started_at"])
	}
}

func TestCreateCoercesValues(t *testing.T) {
	payload, err := newValidator().Create(schema.ProjectDescriptor(), map[string]any{
		"locale":         "RU",
		"title":          " Реконструкция ",
		"year":           "2024",
		"order_index":    "",
		"is_featured":    "true",
		"project_status": "Completed",
		"started_at":     "2023-05-01",
		"completed_at":   "",
		"slug":           "Pipeline Rebuild",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if payload.Locale != "ru" {
		t.Fatalf("locale = %q", payload.Locale)
	}
	if got := payload.Localized["ru"]["title"]; got != "Реконструкция" {
		t.Fatalf("title = %#v", got)
	}
	if got, _ := payload.Value("year"); got != 2024 {
		t.Fatalf("year = %#v", got)
	}
	if got, _ := payload.Value("order_index"); got != 0 {
		t.Fatalf("order_index = %#v", got)
	}
	if got, _ := payload.Value("is_featured"); got != true {
		t.Fatalf("is_featured = %#v", got)
	}
	if got, _ := payload.Value("project_status"); got != "completed" {
		t.Fatalf("project_status = %#v", got)
	}
	started, _ := payload.Value("started_at")
	if ts, ok := started.(time.Time); !ok || !ts.Equal(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("started_at = %#v", started)
	}
	if got, ok := payload.Value("completed_at"); !ok || got != nil {
		t.Fatalf("completed_at should be explicit null, got %#v (%v)", got, ok)
	}
	if got, _ := payload.Value("status"); got != "draft" {
		t.Fatalf("status default = %#v", got)
	}
	if got, _ := payload.Value("slug"); got != "pipeline-rebuild" {
		t.Fatalf("slug = %#v", got)
	}
}

func TestUpdateIsPartial(t *testing.T) {
	payload, err := newValidator().Update(schema.ServiceDescriptor(), map[string]any{
		"summary": "Updated",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := payload.Value("status"); ok {
		t.Fatalf("partial update must not default status")
	}
	if got := payload.Localized[""]["summary"]; got != "Updated" {
		t.Fatalf("summary = %#v", got)
	}

	_, err = newValidator().Update(schema.ServiceDescriptor(), map[string]any{"title": ""})
	if codes := fieldCodes(t, err); codes["title"] == "" {
		t.Fatalf("blanking a required field must fail, got %v", codes)
	}
}

func TestSuffixedLayout(t *testing.T) {
	v := newValidator()

	_, err := v.Create(schema.AboutDescriptor(), map[string]any{"title_ru": "О компании"})
	if codes := fieldCodes(t, err); codes["title_en"] == "" {
		t.Fatalf("default locale title must be required, got %v", codes)
	}

	payload, err := v.Create(schema.AboutDescriptor(), map[string]any{
		"title_en": "About us",
		"title_kk": "Біз туралы",
		"body_ru":  "Текст",
		"section":  "history",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if payload.Locale != "" {
		t.Fatalf("suffixed payloads carry no locale")
	}
	if got := payload.Localized["kk"]["title"]; got != "Біз туралы" {
		t.Fatalf("kk title = %#v", got)
	}
	if got := payload.Localized["ru"]["body"]; got != "Текст" {
		t.Fatalf("ru body = %#v", got)
	}
	if got := payload.Locales(); len(got) != 3 {
		t.Fatalf("locales = %v", got)
	}
}
