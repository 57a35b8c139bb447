package contact_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/steppeindustrial/corpsite/internal/contact"
	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/internal/validation"
	"github.com/steppeindustrial/corpsite/pkg/testsupport"
)

func validSubmission() contact.Submission {
	return contact.Submission{
		Name:    "Aigerim",
		Phone:   "+7 701 000 0000",
		Message: "Please call me about pump maintenance.",
	}
}

func TestSubmitRateLimitsFourthAttempt(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	repo := contact.NewMemoryRepository()
	svc := contact.NewService(repo, contact.NewWindowLimiter(contact.WithLimiterClock(clock.Now)), contact.WithClock(clock.Now))
	source := contact.Source{IP: "1.2.3.4", UserAgent: "test-agent", Referer: "https://example.kz/contacts"}

	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(ctx, validSubmission(), source); err != nil {
			t.Fatalf("submission %d: %v", i+1, err)
		}
		clock.Advance(10 * time.Second)
	}

	_, err := svc.Submit(ctx, validSubmission(), source)
	if !errors.Is(err, contact.ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if repo.Count() != 3 {
		t.Fatalf("expected 3 stored requests, got %d", repo.Count())
	}
}

func TestSubmitRecordsMeta(t *testing.T) {
	clock := newClock()
	svc := contact.NewService(contact.NewMemoryRepository(), nil, contact.WithClock(clock.Now))

	request, err := svc.Submit(context.Background(), contact.Submission{
		Name:    "  Daniyar ",
		Phone:   "87010000000",
		Message: " Need a quote for a compressor. ",
	}, contact.Source{IP: "10.0.0.1", UserAgent: "ua"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if request.Name != "Daniyar" || request.Message != "Need a quote for a compressor." {
		t.Fatalf("expected trimmed values, got %+v", request)
	}
	if request.Meta[contact.MetaIP] != "10.0.0.1" || request.Meta[contact.MetaSubmittedAt] != "2026-06-01T12:00:00Z" {
		t.Fatalf("unexpected meta %+v", request.Meta)
	}
}

func TestSubmitHoneypotLooksLikeValidationError(t *testing.T) {
	repo := contact.NewMemoryRepository()
	svc := contact.NewService(repo, nil)
	submission := validSubmission()
	submission.Honeypot = "http://spam.example"

	_, err := svc.Submit(context.Background(), submission, contact.Source{IP: "1.1.1.1"})
	if !errors.Is(err, validation.ErrInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := validation.Fields(err)
	if len(fields) != 1 || fields[0].Field != "message" {
		t.Fatalf("expected an ordinary message error, got %+v", fields)
	}
	if repo.Count() != 0 {
		t.Fatalf("honeypot submissions must not be stored")
	}
}

func TestSubmitHoneypotKeepsFieldErrors(t *testing.T) {
	repo := contact.NewMemoryRepository()
	svc := contact.NewService(repo, nil)

	_, err := svc.Submit(context.Background(), contact.Submission{
		Name:     "A",
		Phone:    "+7 701 000 0000",
		Message:  "Please call me back about pumps.",
		Honeypot: "filled",
	}, contact.Source{IP: "1.1.1.2"})
	fields := validation.Fields(err)
	got := make([]string, 0, len(fields))
	for _, field := range fields {
		got = append(got, field.Field)
	}
	if len(got) != 2 || got[0] != "message" || got[1] != "name" {
		t.Fatalf("expected field errors alongside the honeypot error, got %+v", fields)
	}
	if repo.Count() != 0 {
		t.Fatalf("honeypot submissions must not be stored")
	}
}

func TestSubmitValidatesEveryField(t *testing.T) {
	repo := contact.NewMemoryRepository()
	limiter := contact.NewWindowLimiter(contact.WithLimit(1))
	svc := contact.NewService(repo, limiter)

	_, err := svc.Submit(context.Background(), contact.Submission{
		Name:    "A",
		Phone:   "   ",
		Message: strings.Repeat("x", 1001),
	}, contact.Source{IP: "2.2.2.2"})
	fields := validation.Fields(err)
	if len(fields) != 3 {
		t.Fatalf("expected three field errors, got %+v", fields)
	}
	want := []string{"message", "name", "phone"}
	for i, field := range fields {
		if field.Field != want[i] {
			t.Fatalf("unexpected field order %+v", fields)
		}
	}
	if repo.Count() != 0 {
		t.Fatalf("invalid submissions must not be stored")
	}
	if _, err := svc.Submit(context.Background(), validSubmission(), contact.Source{IP: "2.2.2.2"}); err != nil {
		t.Fatalf("invalid attempts must not consume the limit: %v", err)
	}
}

func TestListRequiresStaffAndSortsNewestFirst(t *testing.T) {
	clock := newClock()
	svc := contact.NewService(contact.NewMemoryRepository(), contact.NewWindowLimiter(contact.WithLimit(10)), contact.WithClock(clock.Now))
	for i := 0; i < 3; i++ {
		submission := validSubmission()
		submission.Name = []string{"First", "Second", "Third"}[i]
		if _, err := svc.Submit(context.Background(), submission, contact.Source{IP: "3.3.3.3"}); err != nil {
			t.Fatalf("submit: %v", err)
		}
		clock.Advance(time.Minute)
	}

	if _, err := svc.List(context.Background(), 1, 10); !errors.Is(err, permissions.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}

	ctx := permissions.WithSession(context.Background(), permissions.Session{UserID: "e", Role: permissions.RoleEditor})
	result, err := svc.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 3 || len(result.Items) != 2 || result.Items[0].Name != "Third" {
		t.Fatalf("unexpected page %+v", result)
	}
}

func TestBunRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testsupport.NewBunDB(t, (*contact.Request)(nil))
	clock := newClock()
	svc := contact.NewService(contact.NewBunRepository(db), contact.NewWindowLimiter(contact.WithLimit(10)), contact.WithClock(clock.Now))

	for _, name := range []string{"Older", "Newer"} {
		submission := validSubmission()
		submission.Name = name
		if _, err := svc.Submit(ctx, submission, contact.Source{IP: "4.4.4.4", UserAgent: "ua"}); err != nil {
			t.Fatalf("submit: %v", err)
		}
		clock.Advance(time.Hour)
	}

	admin := permissions.WithSession(ctx, permissions.Session{UserID: "a", Role: permissions.RoleAdmin})
	result, err := svc.List(admin, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 2 || result.Items[0].Name != "Newer" {
		t.Fatalf("unexpected result %+v", result.Items)
	}
	if result.Items[0].Meta[contact.MetaUserAgent] != "ua" {
		t.Fatalf("expected meta to round trip, got %+v", result.Items[0].Meta)
	}
}
