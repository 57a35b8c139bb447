package contentcmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/domain"
)

const (
	setStatusMessageType  = "corpsite.content.set_status"
	reorderMessageType    = "corpsite.content.reorder"
	invalidateMessageType = "corpsite.content.invalidate_cache"
)

// SetStatusCommand publishes or unpublishes an entry.
type SetStatusCommand struct {
	Kind   domain.Kind   `json:"kind"`
	ID     uuid.UUID     `json:"id"`
	Status domain.Status `json:"status"`
}

func (SetStatusCommand) Type() string { return setStatusMessageType }

func (m SetStatusCommand) Validate() error {
	errs := validation.Errors{}
	if err := validateKind(m.Kind); err != nil {
		errs["kind"] = err
	}
	if m.ID == uuid.Nil {
		errs["id"] = validation.NewError("corpsite.content.set_status.id_required", "id is required")
	}
	if _, ok := domain.ParseStatus(string(m.Status)); !ok {
		errs["status"] = validation.NewError("corpsite.content.set_status.status_invalid", "status must be draft or published")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ReorderCommand assigns new order indexes to entries of one kind.
type ReorderCommand struct {
	Kind  domain.Kind           `json:"kind"`
	Items []content.OrderUpdate `json:"items"`
}

func (ReorderCommand) Type() string { return reorderMessageType }

func (m ReorderCommand) Validate() error {
	errs := validation.Errors{}
	if err := validateKind(m.Kind); err != nil {
		errs["kind"] = err
	}
	if len(m.Items) == 0 {
		errs["items"] = validation.NewError("corpsite.content.reorder.items_required", "at least one item is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// InvalidateCacheCommand drops cached reads for Kind, or for every kind when
// Kind is empty.
type InvalidateCacheCommand struct {
	Kind domain.Kind `json:"kind,omitempty"`
}

func (InvalidateCacheCommand) Type() string { return invalidateMessageType }

func (m InvalidateCacheCommand) Validate() error {
	if strings.TrimSpace(string(m.Kind)) == "" {
		return nil
	}
	if err := validateKind(m.Kind); err != nil {
		return validation.Errors{"kind": err}
	}
	return nil
}

func validateKind(kind domain.Kind) error {
	if _, ok := domain.ParseKind(string(kind)); !ok {
		return validation.NewError("corpsite.content.kind_invalid", "unknown content kind")
	}
	return nil
}
