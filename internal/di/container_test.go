package di_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	maintenancecmd "github.com/steppeindustrial/corpsite/internal/commands/maintenance"
	seedcmd "github.com/steppeindustrial/corpsite/internal/commands/seed"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/di"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/identity"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/internal/runtimeconfig"
	"github.com/steppeindustrial/corpsite/internal/visibility"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

var fixedNow = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type nopProvider struct{}

func (nopProvider) GetLogger(string) interfaces.Logger { return logging.NoOp() }

func newContainer(t *testing.T, mutate func(*runtimeconfig.Config), opts ...di.Option) *di.Container {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig()
	cfg.Auth.Secret = "container-test-secret"
	if mutate != nil {
		mutate(&cfg)
	}
	opts = append([]di.Option{
		di.WithLoggerProvider(nopProvider{}),
		di.WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		t.Fatalf("new container: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })
	return container
}

func adminContext() context.Context {
	return permissions.WithSession(context.Background(), permissions.Session{UserID: "u-1", Role: permissions.RoleAdmin})
}

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.DefaultLocale = "de"
	if _, err := di.NewContainer(cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestContainerMemoryWiring(t *testing.T) {
	c := newContainer(t, nil)
	if c.Coordinator() == nil {
		t.Fatal("expected cache coordinator when caching is enabled")
	}
	if c.Authenticator() == nil {
		t.Fatal("expected authenticator when a secret is configured")
	}
	if c.ContentCommands() == nil || c.SweepHandler() == nil {
		t.Fatal("expected command handlers")
	}

	ctx := adminContext()
	item, err := c.WorkflowService().Create(ctx, domain.KindNews, map[string]any{
		"locale": "en",
		"title":  "Plant Opening",
		"status": "published",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view, err := c.ContentService().GetBySlug(context.Background(), domain.KindNews, item.Entry.Slug, "kk", visibility.Context{})
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if view.Fields["title"] != "Plant Opening" {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestContainerCacheDisabled(t *testing.T) {
	c := newContainer(t, func(cfg *runtimeconfig.Config) {
		cfg.Cache.Enabled = false
	})
	if c.Coordinator() != nil {
		t.Fatal("expected no coordinator when caching is disabled")
	}
}

func TestContainerHandlerServesPublicAndAdminRoutes(t *testing.T) {
	c := newContainer(t, nil)
	handler, err := c.Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/service", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("public list: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/service", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous admin: status %d", rec.Code)
	}

	token, err := c.Authenticator().Sign(permissions.Session{UserID: "ed-1", Role: permissions.RoleEditor}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	body, _ := json.Marshal(map[string]any{"locale": "en", "title": "Valve Service"})
	req := httptest.NewRequest(http.MethodPost, "/admin/api/service", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestContainerSeedHandlerIsIdempotent(t *testing.T) {
	c := newContainer(t, nil, di.WithIDGenerator(identity.Deterministic))
	fsys := fstest.MapFS{
		"seed/service/pump-repair.md":    {Data: []byte("---\ntitle: Pump Repair\nstatus: published\n---\nWe repair pumps.\n")},
		"seed/service/ru/pump-repair.md": {Data: []byte("---\ntitle: Ремонт насосов\nstatus: published\n---\n")},
	}
	handler := c.SeedHandler(fsys)

	for run := 0; run < 2; run++ {
		msg := seedcmd.ImportCommand{Root: "seed"}
		if err := handler.Execute(context.Background(), msg); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}

	result, err := c.ContentService().AdminList(adminContext(), domain.KindService, content.AdminListRequest{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected two locale rows after two runs, got %d", result.Total)
	}
}

func TestContainerSweepRunsRegisteredStores(t *testing.T) {
	c := newContainer(t, nil)
	if err := c.SweepHandler().Execute(context.Background(), maintenancecmd.SweepCommand{}); err != nil {
		t.Fatalf("sweep: %v", err)
	}
}

func TestContainerRunMaintenanceStopsWithContext(t *testing.T) {
	c := newContainer(t, func(cfg *runtimeconfig.Config) {
		cfg.Contact.SweepInterval = time.Millisecond
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.RunMaintenance(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("maintenance loop did not stop")
	}
}

func TestContainerBunStorage(t *testing.T) {
	c := newContainer(t, func(cfg *runtimeconfig.Config) {
		cfg.Storage.Provider = "bun"
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.DSN = "file:di_container_bun?mode=memory&cache=shared"
		cfg.Storage.Migrate = true
		cfg.Storage.RepositoryCache = true
	})

	ctx := adminContext()
	if _, err := c.WorkflowService().Create(ctx, domain.KindProject, map[string]any{
		"locale": "en",
		"title":  "Dam Upgrade",
		"status": "published",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, err := c.ContentService().List(context.Background(), domain.KindProject, content.ListRequest{Locale: "en"}, visibility.Context{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 1 || list.Items[0].Slug != "dam-upgrade" {
		t.Fatalf("unexpected list %+v", list)
	}

	if _, err := c.ContactService().List(ctx, 1, 10); err != nil {
		t.Fatalf("contact list: %v", err)
	}
}
