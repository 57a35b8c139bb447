package console_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/internal/logging/console"
)

func TestLoggerWritesSortedFields(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: func() time.Time { return now },
		MinLevel: console.LevelDebug,
	})

	ctx := logging.ContextWithFields(context.Background(), map[string]any{"request_id": "req-9"})
	logger := logging.ContactLogger(provider).WithContext(ctx)
	logger.Warn("contact.rate_limited", "source", "10.0.0.1", "retry_after", 90*time.Second, "error", errors.New("too many requests"))

	got := strings.TrimSpace(buf.String())
	want := `2026-04-02T10:30:00Z WARN contact.rate_limited error="too many requests" logger=corpsite.contact module=corpsite.contact request_id=req-9 retry_after=1m30s source=10.0.0.1`
	if got != want {
		t.Fatalf("unexpected entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf, MinLevel: console.ParseLevel("info")})

	logger := provider.GetLogger("corpsite.test")
	logger.Debug("dropped")
	logger.Info("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "kept") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
