package trainer

import (
	"errors"
	"fmt"
)

// ErrNonFinite indicates a NaN or infinite total loss. Training stops.
var ErrNonFinite = errors.New("trainer: non-finite loss")

// StepError locates a training failure.
type StepError struct {
	Phase Phase
	Iter  int
	Loss  float64
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %d: loss %g: %v", e.Phase, e.Iter, e.Loss, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
