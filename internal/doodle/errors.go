package doodle

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("invalid parameter value")

	ErrDuplicateClass    = errors.New("class already registered")
	ErrInvalidDefinition = errors.New("invalid doodle definition")
	ErrOrderCycle        = errors.New("cyclic in-front-of constraint")
)

// ValidationError reports a rejected parameter assignment. The doodle is unchanged.
type ValidationError struct {
	Class     string
	Parameter string
	Value     any
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s = %v: %s", e.Class, e.Parameter, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
