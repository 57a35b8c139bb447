package maintenancecmd

import (
	"context"
	"errors"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/steppeindustrial/corpsite/internal/commands"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

const sweepMessageType = "corpsite.maintenance.sweep"

// Sweeper drops state that expired before now and reports how many
// entries it removed.
type Sweeper interface {
	Sweep(now time.Time) int
}

// SweepCommand asks every registered sweeper to drop expired state.
type SweepCommand struct{}

func (SweepCommand) Type() string { return sweepMessageType }

// SweepHandler runs the in-process sweepers: the contact limiter windows and
// the in-memory cache store.
type SweepHandler struct {
	inner *commands.Handler[SweepCommand]
}

func NewSweepHandler(sweepers map[string]Sweeper, clock func() time.Time, logger interfaces.Logger, opts ...commands.HandlerOption[SweepCommand]) *SweepHandler {
	if clock == nil {
		clock = time.Now
	}
	logger = commands.EnsureLogger(logger)
	exec := func(ctx context.Context, _ SweepCommand) error {
		now := clock()
		for name, sweeper := range sweepers {
			if err := ctx.Err(); err != nil {
				return err
			}
			if removed := sweeper.Sweep(now); removed > 0 {
				logger.Debug("maintenance.sweep", "target", name, "removed", removed)
			}
		}
		return nil
	}
	handlerOpts := append([]commands.HandlerOption[SweepCommand]{
		commands.WithLogger[SweepCommand](logger),
		commands.WithOperation[SweepCommand]("maintenance.sweep"),
	}, opts...)
	return &SweepHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

func (h *SweepHandler) Execute(ctx context.Context, msg SweepCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CronRegistrar matches the cron registration function of go-command
// registries.
type CronRegistrar func(command.HandlerConfig, any) error

// RegisterCron schedules handler with the cron registrar.
func RegisterCron(reg CronRegistrar, handler *SweepHandler, cfg command.HandlerConfig) error {
	if reg == nil {
		return errors.New("maintenance cron: registrar is nil")
	}
	if handler == nil {
		return errors.New("maintenance cron: handler is nil")
	}
	return reg(cfg, func() error {
		return handler.Execute(context.Background(), SweepCommand{})
	})
}
