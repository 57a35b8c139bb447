package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/steppeindustrial/corpsite"
	"github.com/steppeindustrial/corpsite/internal/di"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

type silentProvider struct{}

func (silentProvider) GetLogger(string) interfaces.Logger { return logging.NoOp() }

func TestRunRequiresAuthSecret(t *testing.T) {
	t.Setenv("CORPSITE_AUTH_SECRET", "")
	err := run(context.Background(), nil)
	if !errors.Is(err, corpsite.ErrAuthSecretRequired) {
		t.Fatalf("expected ErrAuthSecretRequired, got %v", err)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	cfg := corpsite.DefaultConfig()
	cfg.HTTP.ShutdownTimeout = time.Second
	module, err := corpsite.New(cfg, di.WithLoggerProvider(silentProvider{}))
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	defer module.Close()

	handler, err := module.Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	server := &http.Server{Addr: "127.0.0.1:0", Handler: handler}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, server, module, cfg.HTTP) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
