// Package lifecycle validates burn-in state transitions according to the
// fixed {new, burning_in, stable, flaky} state machine.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/svdh2/burnin-orchestrator/internal/status"
)

// Sentinel errors for state transition validation, usable with errors.Is.
var (
	// ErrInvalidTransition indicates a transition outside the allowed set.
	ErrInvalidTransition = errors.New("invalid burn-in state transition")

	// ErrTerminalStateImmutable indicates an attempt to move a test out of
	// a state that only external commands (promote, deflake) may leave.
	ErrTerminalStateImmutable = errors.New("state requires an explicit external command to leave")
)

var allowedTransitions = map[status.State]map[status.State]bool{
	status.StateNew: {
		status.StateBurningIn: true, // external "promote" command
	},
	status.StateBurningIn: {
		status.StateStable: true, // SPRT accept
		status.StateFlaky:  true, // SPRT reject
	},
	status.StateStable: {
		status.StateFlaky: true, // demotion-SPRT on a regression
	},
	status.StateFlaky: {
		status.StateBurningIn: true, // external "deflake" command, counters cleared
	},
}

// Validate checks whether from → to is an allowed transition in the
// burn-in lifecycle. Identical from/to is always allowed (idempotent).
func Validate(from, to status.State) error {
	if from == to {
		return nil
	}

	targets, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}

	if !targets[to] {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}

	return nil
}

// IsDeflake reports whether a from→to pair is the external deflake
// transition, which is the only transition that clears counters.
func IsDeflake(from, to status.State) bool {
	return from == status.StateFlaky && to == status.StateBurningIn
}
