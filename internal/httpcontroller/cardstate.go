// internal/httpcontroller/cardstate.go
package httpcontroller

import (
	"github.com/fernwick/speciarium/internal/errors"
)

// CardState is the dialog state of a record card. The three states are
// mutually exclusive; a card is never viewing and editing at once.
type CardState string

const (
	// StateClosed means no dialog is open for the card
	StateClosed CardState = "closed"
	// StateViewing means the details dialog is open
	StateViewing CardState = "viewing"
	// StateEditing means the edit form is open
	StateEditing CardState = "editing"
)

// CardEvent is a transition trigger on the card state machine
type CardEvent string

const (
	// EventOpenDetails opens the details dialog
	EventOpenDetails CardEvent = "open-details"
	// EventOpenEdit opens the edit form
	EventOpenEdit CardEvent = "open-edit"
	// EventClose dismisses the open dialog
	EventClose CardEvent = "close"
)

// transitions enumerates the valid state changes. Anything absent is
// rejected.
var transitions = map[CardState]map[CardEvent]CardState{
	StateClosed: {
		EventOpenDetails: StateViewing,
		EventOpenEdit:    StateEditing,
	},
	StateViewing: {
		EventOpenEdit: StateEditing,
		EventClose:    StateClosed,
	},
	StateEditing: {
		EventOpenDetails: StateViewing,
		EventClose:       StateClosed,
	},
}

// Apply transitions the state with the given event, rejecting invalid
// transitions.
func (s CardState) Apply(event CardEvent) (CardState, error) {
	if next, ok := transitions[s][event]; ok {
		return next, nil
	}
	return s, errors.Newf("invalid card transition %q from state %q", event, s).
		Component("httpcontroller").
		Category(errors.CategoryState).
		Build()
}

// ParseCardState maps a query parameter to a card state. An empty value
// means closed.
func ParseCardState(value string) (CardState, error) {
	switch value {
	case "", string(StateClosed):
		return StateClosed, nil
	case string(StateViewing):
		return StateViewing, nil
	case string(StateEditing):
		return StateEditing, nil
	default:
		return StateClosed, errors.Newf("unknown card state %q", value).
			Component("httpcontroller").
			Category(errors.CategoryValidation).
			Build()
	}
}
