// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"errors"
	"fmt"

	"github.com/pdiddy/content-engine/pkg/types"
)

// ErrInvalidTransition is returned for a gate state change the lifecycle
// does not allow.
var ErrInvalidTransition = errors.New("invalid gate transition")

var transitions = map[types.GateState][]types.GateState{
	types.GatePending:    {types.GateValidating},
	types.GateValidating: {types.GateApproved, types.GateRejected, types.GatePendingHumanReview},
}

// Machine tracks the gate state of one document version.
type Machine struct {
	state types.GateState
}

// NewMachine returns a machine in the pending state.
func NewMachine() *Machine {
	return &Machine{state: types.GatePending}
}

// State returns the current state.
func (m *Machine) State() types.GateState { return m.state }

// Transition moves to state to. Terminal states have no way out.
func (m *Machine) Transition(to types.GateState) error {
	for _, next := range transitions[m.state] {
		if next == to {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
}
