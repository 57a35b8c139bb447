package commands

import (
	"context"
	"errors"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// DefaultTimeout bounds a command run unless WithTimeout overrides it.
const DefaultTimeout = 30 * time.Second

// Status is the outcome category reported to telemetry callbacks.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusFailed       Status = "failed"
	StatusContextError Status = "context_error"
)

// Outcome describes one finished command run.
type Outcome struct {
	Command   string
	Operation string
	Duration  time.Duration
	Status    Status
	Error     error
}

// Telemetry is invoked after every run, successful or not.
type Telemetry[T command.Message] func(ctx context.Context, msg T, outcome Outcome)

// HandlerOption configures a Handler.
type HandlerOption[T command.Message] func(*Handler[T])

// Handler runs a command function with message validation, a timeout,
// structured logging and go-errors categorisation. It satisfies go-command's
// Commander interface so it can be subscribed to the dispatcher.
type Handler[T command.Message] struct {
	exec      command.CommandFunc[T]
	logger    interfaces.Logger
	timeout   time.Duration
	operation string
	telemetry Telemetry[T]
	now       func() time.Time
}

func NewHandler[T command.Message](fn command.CommandFunc[T], opts ...HandlerOption[T]) *Handler[T] {
	if fn == nil {
		panic("commands: handler function cannot be nil")
	}
	h := &Handler[T]{
		exec:    fn,
		logger:  logging.NoOp(),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Execute validates msg and runs the wrapped function.
func (h *Handler[T]) Execute(ctx context.Context, msg T) error {
	if err := command.ValidateMessage(msg); err != nil {
		return wrapValidationError(err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return wrapContextError(err)
	}

	fields := map[string]any{"command": command.GetMessageType(msg)}
	if h.operation != "" {
		fields["operation"] = h.operation
	}
	logger := logging.WithFields(h.logger.WithContext(ctx), fields)
	logger.Debug("command.execute.start")

	started := h.now()
	err := h.exec(ctx, msg)
	status := StatusSuccess
	switch {
	case err != nil && isContextError(err):
		status = StatusContextError
		err = wrapContextError(err)
	case err != nil:
		status = StatusFailed
		err = wrapExecuteError(err)
	case ctx.Err() != nil:
		status = StatusContextError
		err = wrapContextError(ctx.Err())
	}
	duration := h.now().Sub(started)

	switch status {
	case StatusSuccess:
		logger.Info("command.execute.success", "duration_ms", duration.Milliseconds())
	case StatusContextError:
		logger.Error("command.execute.context_error", "duration_ms", duration.Milliseconds(), "error", err)
	default:
		logger.Error("command.execute.failed", "duration_ms", duration.Milliseconds(), "error", err)
	}

	if h.telemetry != nil {
		h.telemetry(ctx, msg, Outcome{
			Command:   fields["command"].(string),
			Operation: h.operation,
			Duration:  duration,
			Status:    status,
			Error:     err,
		})
	}
	return err
}

// WithTimeout overrides DefaultTimeout. Zero or negative disables it.
func WithTimeout[T command.Message](timeout time.Duration) HandlerOption[T] {
	return func(h *Handler[T]) {
		if timeout <= 0 {
			h.timeout = 0
			return
		}
		h.timeout = timeout
	}
}

func WithLogger[T command.Message](logger interfaces.Logger) HandlerOption[T] {
	return func(h *Handler[T]) {
		if logger == nil {
			h.logger = logging.NoOp()
			return
		}
		h.logger = logger
	}
}

// WithOperation names the operation in every log entry.
func WithOperation[T command.Message](operation string) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.operation = operation
	}
}

func WithTelemetry[T command.Message](telemetry Telemetry[T]) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.telemetry = telemetry
	}
}

func withClock[T command.Message](now func() time.Time) HandlerOption[T] {
	return func(h *Handler[T]) {
		if now != nil {
			h.now = now
		}
	}
}

func (h *Handler[T]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.timeout)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
