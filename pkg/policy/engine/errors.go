package engine

import (
	"errors"
	"fmt"
)

// ErrValidatorTimeout marks a validator script that exceeded its deadline.
var ErrValidatorTimeout = errors.New("validator script timed out")

// ValidatorError wraps a validator infrastructure failure: spawning, I/O or
// waiting on the script. A nonzero exit is a block decision, not a
// ValidatorError.
type ValidatorError struct {
	Script string
	State  ValidatorState
	Err    error
}

func (e *ValidatorError) Error() string {
	return fmt.Sprintf("validator script %q (%s): %v", e.Script, e.State, e.Err)
}

func (e *ValidatorError) Unwrap() error {
	return e.Err
}
