package workflow

import (
	"errors"
	"fmt"

	"github.com/steppeindustrial/corpsite/internal/domain"
)

// Transition names.
const (
	TransitionPublish   = "publish"
	TransitionUnpublish = "unpublish"
)

// ErrInvalidTransition indicates the requested status change is not allowed.
var ErrInvalidTransition = errors.New("workflow: transition not allowed")

// Transition is a named move between two publication states.
type Transition struct {
	Name string
	From domain.Status
	To   domain.Status
}

// Changed reports whether the transition moves to another state.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// StateMachine validates status changes of content entries.
type StateMachine struct {
	byState map[domain.Status][]Transition
}

// NewStateMachine compiles transitions into a lookup table.
func NewStateMachine(transitions ...Transition) *StateMachine {
	m := &StateMachine{byState: make(map[domain.Status][]Transition)}
	for _, transition := range transitions {
		m.byState[transition.From] = append(m.byState[transition.From], transition)
	}
	return m
}

// DefaultStateMachine allows publishing drafts and unpublishing published
// entries. Unpublishing keeps the original publication timestamp.
func DefaultStateMachine() *StateMachine {
	return NewStateMachine(
		Transition{Name: TransitionPublish, From: domain.StatusDraft, To: domain.StatusPublished},
		Transition{Name: TransitionUnpublish, From: domain.StatusPublished, To: domain.StatusDraft},
	)
}

// Resolve returns the transition from one state to another. Staying in the
// same state is always allowed and yields an unnamed transition.
func (m *StateMachine) Resolve(from, to domain.Status) (Transition, error) {
	if from == to {
		return Transition{From: from, To: to}, nil
	}
	for _, candidate := range m.byState[from] {
		if candidate.To == to {
			return candidate, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Available lists the transitions reachable from state.
func (m *StateMachine) Available(state domain.Status) []Transition {
	transitions := m.byState[state]
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}
