package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/contact"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/internal/problem"
	"github.com/steppeindustrial/corpsite/internal/workflow"
)

const testSecret = "test-secret"

var testNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	handler http.Handler
	repo    *content.MemoryRepository
	auth    *permissions.JWTAuthenticator
}

func setupAPI(t *testing.T) *fixture {
	t.Helper()
	repo := content.NewMemoryRepository()
	reads := content.NewService(repo, nil)
	writes := workflow.NewService(repo, workflow.WithClock(func() time.Time { return testNow }))
	limiter := contact.NewWindowLimiter(contact.WithLimiterClock(func() time.Time { return testNow }))
	contacts := contact.NewService(contact.NewMemoryRepository(), limiter, contact.WithClock(func() time.Time { return testNow }))
	auth := permissions.NewJWTAuthenticator(testSecret, permissions.WithTimeFunc(func() time.Time { return testNow }))

	mux := http.NewServeMux()
	public := NewPublicAPI(WithPublicContentService(reads), WithContactService(contacts))
	if err := public.Register(mux); err != nil {
		t.Fatalf("register public: %v", err)
	}
	admin := NewAdminAPI(WithContentService(reads), WithWorkflowService(writes), WithContactRequests(contacts))
	if err := admin.Register(mux); err != nil {
		t.Fatalf("register admin: %v", err)
	}
	return &fixture{
		handler: SessionMiddleware(auth, nil)(mux),
		repo:    repo,
		auth:    auth,
	}
}

func (f *fixture) token(t *testing.T, role permissions.Role) string {
	t.Helper()
	token, err := f.auth.Sign(permissions.Session{UserID: "user-" + string(role), Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func (f *fixture) seed(t *testing.T, entries ...*content.Entry) {
	t.Helper()
	for _, entry := range entries {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = testNow
			entry.UpdatedAt = testNow
		}
		if _, err := f.repo.Create(context.Background(), entry); err != nil {
			t.Fatalf("seed %s: %v", entry.Slug, err)
		}
	}
}

func doJSONRequest(t *testing.T, h http.Handler, method, path, token string, body any, wantStatus int) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != wantStatus {
		t.Fatalf("%s %s: expected status %d got %d (%s)", method, path, wantStatus, rec.Code, rec.Body.String())
	}
	return rec
}

func decodeJSONBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestPublicAPI_DraftsNeedStaffPreview(t *testing.T) {
	f := setupAPI(t)
	published := testNow.Add(-time.Hour)
	f.seed(t,
		&content.Entry{Kind: domain.KindNews, Locale: "en", Slug: "launch", Status: domain.StatusPublished, Title: "Launch", PublishedAt: &published},
		&content.Entry{Kind: domain.KindNews, Locale: "en", Slug: "upcoming", Status: domain.StatusDraft, Title: "Upcoming"},
	)

	var list content.ListResult
	decodeJSONBody(t, doJSONRequest(t, f.handler, http.MethodGet, "/api/news?locale=en", "", nil, http.StatusOK), &list)
	if list.Total != 1 || list.Items[0].Slug != "launch" {
		t.Fatalf("expected only the published item, got %+v", list)
	}

	// A visitor asking for preview still sees published items only.
	decodeJSONBody(t, doJSONRequest(t, f.handler, http.MethodGet, "/api/news?preview=1", "", nil, http.StatusOK), &list)
	if list.Total != 1 {
		t.Fatalf("anonymous preview leaked drafts: %+v", list)
	}

	editor := f.token(t, permissions.RoleEditor)
	decodeJSONBody(t, doJSONRequest(t, f.handler, http.MethodGet, "/api/news?preview=1", editor, nil, http.StatusOK), &list)
	if list.Total != 2 {
		t.Fatalf("expected draft in preview, got %+v", list)
	}

	rec := doJSONRequest(t, f.handler, http.MethodGet, "/api/news/upcoming", "", nil, http.StatusNotFound)
	var p problem.Problem
	decodeJSONBody(t, rec, &p)
	if p.Kind != problem.KindNotFound {
		t.Fatalf("expected not_found, got %+v", p)
	}
	doJSONRequest(t, f.handler, http.MethodGet, "/api/news/upcoming?preview=true", editor, nil, http.StatusOK)
}

func TestPublicAPI_UnknownKindAndFilter(t *testing.T) {
	f := setupAPI(t)
	doJSONRequest(t, f.handler, http.MethodGet, "/api/blog", "", nil, http.StatusNotFound)
	doJSONRequest(t, f.handler, http.MethodGet, "/api/news?colour=red", "", nil, http.StatusUnprocessableEntity)
	doJSONRequest(t, f.handler, http.MethodGet, "/api/news?page=two", "", nil, http.StatusBadRequest)
}

func TestPublicAPI_ContactRateLimit(t *testing.T) {
	f := setupAPI(t)
	body := map[string]any{"name": "Aigerim", "phone": "+7 701 555 0101", "message": "Please call me back about pumps."}
	for i := 0; i < 3; i++ {
		doJSONRequest(t, f.handler, http.MethodPost, "/api/contact", "", body, http.StatusCreated)
	}
	rec := doJSONRequest(t, f.handler, http.MethodPost, "/api/contact", "", body, http.StatusTooManyRequests)
	if got := rec.Header().Get("Retry-After"); got != "900" {
		t.Fatalf("expected Retry-After 900, got %q", got)
	}
	var p problem.Problem
	decodeJSONBody(t, rec, &p)
	if p.Kind != problem.KindRateLimited || p.RetryAfter != 900 {
		t.Fatalf("unexpected problem %+v", p)
	}
}

func TestPublicAPI_ContactValidation(t *testing.T) {
	f := setupAPI(t)
	rec := doJSONRequest(t, f.handler, http.MethodPost, "/api/contact", "", map[string]any{"name": "A"}, http.StatusUnprocessableEntity)
	var p problem.Problem
	decodeJSONBody(t, rec, &p)
	if len(p.Fields) != 3 {
		t.Fatalf("expected name, phone and message errors, got %+v", p.Fields)
	}
	doJSONRequest(t, f.handler, http.MethodPost, "/api/contact", "", map[string]any{
		"name": "Bot", "phone": "12345", "message": "buy cheap things now", "_hp": "filled",
	}, http.StatusUnprocessableEntity)
}

func TestAdminAPI_RequiresStaff(t *testing.T) {
	f := setupAPI(t)
	doJSONRequest(t, f.handler, http.MethodGet, "/admin/api/news", "", nil, http.StatusForbidden)
	doJSONRequest(t, f.handler, http.MethodGet, "/admin/api/news", "not-a-token", nil, http.StatusForbidden)
	doJSONRequest(t, f.handler, http.MethodGet, "/admin/api/news", f.token(t, permissions.RoleNone), nil, http.StatusForbidden)
	doJSONRequest(t, f.handler, http.MethodGet, "/admin/api/news", f.token(t, permissions.RoleEditor), nil, http.StatusOK)
}

func TestAdminAPI_EntryLifecycle(t *testing.T) {
	f := setupAPI(t)
	admin := f.token(t, permissions.RoleAdmin)

	rec := doJSONRequest(t, f.handler, http.MethodPost, "/admin/api/service", admin, map[string]any{
		"locale": "en",
		"title":  "Pump Repair",
		"body":   "We repair pumps.",
	}, http.StatusCreated)
	var created content.AdminItem
	decodeJSONBody(t, rec, &created)
	if created.Entry.Slug != "pump-repair" || created.Entry.Status != domain.StatusDraft {
		t.Fatalf("unexpected created entry %+v", created.Entry)
	}
	itemPath := "/admin/api/service/" + created.Entry.ID.String()

	doJSONRequest(t, f.handler, http.MethodGet, "/api/service/pump-repair", "", nil, http.StatusNotFound)
	for _, body := range []any{nil, map[string]any{"status": ""}, map[string]any{"status": "archived"}} {
		rec := doJSONRequest(t, f.handler, http.MethodPost, itemPath+"/status", admin, body, http.StatusUnprocessableEntity)
		var p problem.Problem
		decodeJSONBody(t, rec, &p)
		if len(p.Fields) != 1 || p.Fields[0].Field != "status" {
			t.Fatalf("expected a status field error for %v, got %+v", body, p.Fields)
		}
	}
	doJSONRequest(t, f.handler, http.MethodPost, itemPath+"/status", admin, map[string]any{"status": "published"}, http.StatusOK)

	var view content.View
	decodeJSONBody(t, doJSONRequest(t, f.handler, http.MethodGet, "/api/service/pump-repair?locale=ru", "", nil, http.StatusOK), &view)
	if view.Fields["title"] != "Pump Repair" || !view.UsedFallback("title") {
		t.Fatalf("expected english fallback for ru, got %+v", view)
	}

	doJSONRequest(t, f.handler, http.MethodPut, itemPath, admin, map[string]any{"title": ""}, http.StatusUnprocessableEntity)
	doJSONRequest(t, f.handler, http.MethodPut, itemPath, admin, map[string]any{"summary": "Fast turnaround"}, http.StatusOK)
	doJSONRequest(t, f.handler, http.MethodGet, itemPath, admin, nil, http.StatusOK)
	doJSONRequest(t, f.handler, http.MethodDelete, itemPath, admin, nil, http.StatusNoContent)
	doJSONRequest(t, f.handler, http.MethodGet, itemPath, admin, nil, http.StatusNotFound)
}

func TestAdminAPI_ReorderReportsMissing(t *testing.T) {
	f := setupAPI(t)
	existing := &content.Entry{Kind: domain.KindProject, Locale: "en", Slug: "dam", Status: domain.StatusPublished, Title: "Dam"}
	f.seed(t, existing)
	missing := uuid.New()

	rec := doJSONRequest(t, f.handler, http.MethodPost, "/admin/api/project/reorder", f.token(t, permissions.RoleEditor), map[string]any{
		"items": []map[string]any{
			{"id": existing.ID.String(), "order_index": 5},
			{"id": missing.String(), "order_index": 6},
		},
	}, http.StatusNotFound)
	var p problem.Problem
	decodeJSONBody(t, rec, &p)
	if len(p.Missing) != 1 || p.Missing[0] != missing.String() {
		t.Fatalf("expected missing id report, got %+v", p)
	}
	stored, _ := f.repo.GetByID(context.Background(), existing.ID)
	if stored.OrderIndex != 0 {
		t.Fatalf("reorder applied partially: order_index=%d", stored.OrderIndex)
	}
}

func TestAdminAPI_ContactRequests(t *testing.T) {
	f := setupAPI(t)
	doJSONRequest(t, f.handler, http.MethodPost, "/api/contact", "", map[string]any{
		"name": "Dana", "phone": "87015550101", "message": "Need a quote for a compressor.",
	}, http.StatusCreated)

	var list contact.ListResult
	decodeJSONBody(t, doJSONRequest(t, f.handler, http.MethodGet, "/admin/api/contact-requests", f.token(t, permissions.RoleEditor), nil, http.StatusOK), &list)
	if list.Total != 1 || list.Items[0].Name != "Dana" {
		t.Fatalf("unexpected inbox %+v", list)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := clientIP(req, false); got != "10.1.2.3" {
		t.Fatalf("expected remote addr, got %q", got)
	}
	if got := clientIP(req, true); got != "203.0.113.9" {
		t.Fatalf("expected forwarded addr, got %q", got)
	}
}
