package contentcmd

import (
	"errors"

	"github.com/steppeindustrial/corpsite/internal/commands"
	"github.com/steppeindustrial/corpsite/internal/workflow"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// CommandRegistry is the registration contract of a go-command registry.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the content command handlers.
type HandlerSet struct {
	SetStatus  *SetStatusHandler
	Reorder    *ReorderHandler
	Invalidate *InvalidateCacheHandler
}

// Register builds the content handlers and registers them with reg when it
// is not nil.
func Register(reg CommandRegistry, service workflow.Service, cache CacheInvalidator, provider interfaces.LoggerProvider) (*HandlerSet, error) {
	if service == nil {
		return nil, errors.New("content command registration: workflow service is nil")
	}
	if cache == nil {
		return nil, errors.New("content command registration: cache is nil")
	}
	logger := commands.Logger(provider, "content")
	set := &HandlerSet{
		SetStatus:  NewSetStatusHandler(service, logger),
		Reorder:    NewReorderHandler(service, logger),
		Invalidate: NewInvalidateCacheHandler(cache, logger),
	}
	if reg != nil {
		for _, handler := range []any{set.SetStatus, set.Reorder, set.Invalidate} {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}
