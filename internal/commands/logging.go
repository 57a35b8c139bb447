package commands

import (
	"strings"

	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// Logger returns the logger for command handlers of one module, tagged so
// command output can be filtered apart from request logs.
func Logger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.WithFields(logging.CommandsLogger(provider), map[string]any{
		"component":      "command",
		"command_module": name,
	})
	return logger
}

// EnsureLogger returns logger, or a no-op logger when it is nil.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}
