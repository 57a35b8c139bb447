package contentcmd

import (
	"context"

	"github.com/steppeindustrial/corpsite/internal/commands"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/workflow"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// CacheInvalidator drops cached reads.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, kind domain.Kind) error
	InvalidateAll(ctx context.Context) error
}

// SetStatusHandler runs SetStatusCommand through the publish workflow.
type SetStatusHandler struct {
	inner *commands.Handler[SetStatusCommand]
}

func NewSetStatusHandler(service workflow.Service, logger interfaces.Logger, opts ...commands.HandlerOption[SetStatusCommand]) *SetStatusHandler {
	exec := func(ctx context.Context, msg SetStatusCommand) error {
		_, err := service.SetStatus(commands.WithSystemSession(ctx), msg.Kind, msg.ID, msg.Status)
		return err
	}
	handlerOpts := append([]commands.HandlerOption[SetStatusCommand]{
		commands.WithLogger[SetStatusCommand](logger),
		commands.WithOperation[SetStatusCommand]("content.set_status"),
	}, opts...)
	return &SetStatusHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

func (h *SetStatusHandler) Execute(ctx context.Context, msg SetStatusCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ReorderHandler runs ReorderCommand through the publish workflow.
type ReorderHandler struct {
	inner *commands.Handler[ReorderCommand]
}

func NewReorderHandler(service workflow.Service, logger interfaces.Logger, opts ...commands.HandlerOption[ReorderCommand]) *ReorderHandler {
	exec := func(ctx context.Context, msg ReorderCommand) error {
		return service.Reorder(commands.WithSystemSession(ctx), msg.Kind, msg.Items)
	}
	handlerOpts := append([]commands.HandlerOption[ReorderCommand]{
		commands.WithLogger[ReorderCommand](logger),
		commands.WithOperation[ReorderCommand]("content.reorder"),
	}, opts...)
	return &ReorderHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

func (h *ReorderHandler) Execute(ctx context.Context, msg ReorderCommand) error {
	return h.inner.Execute(ctx, msg)
}

// InvalidateCacheHandler drops cached reads on demand.
type InvalidateCacheHandler struct {
	inner *commands.Handler[InvalidateCacheCommand]
}

func NewInvalidateCacheHandler(cache CacheInvalidator, logger interfaces.Logger, opts ...commands.HandlerOption[InvalidateCacheCommand]) *InvalidateCacheHandler {
	exec := func(ctx context.Context, msg InvalidateCacheCommand) error {
		if msg.Kind == "" {
			return cache.InvalidateAll(ctx)
		}
		return cache.Invalidate(ctx, msg.Kind)
	}
	handlerOpts := append([]commands.HandlerOption[InvalidateCacheCommand]{
		commands.WithLogger[InvalidateCacheCommand](logger),
		commands.WithOperation[InvalidateCacheCommand]("content.invalidate_cache"),
	}, opts...)
	return &InvalidateCacheHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

func (h *InvalidateCacheHandler) Execute(ctx context.Context, msg InvalidateCacheCommand) error {
	return h.inner.Execute(ctx, msg)
}
