package grid

import (
	"errors"
	"fmt"
)

// Domain errors for state and coupling operations.
var (
	// ErrShapeMismatch indicates a structural mismatch between expected and
	// actual field or feature shapes. It signals a configuration bug, not a
	// runtime condition to retry.
	ErrShapeMismatch = errors.New("grid: shape mismatch")

	// ErrNumericalInstability indicates a field left its physically valid
	// range during a step.
	ErrNumericalInstability = errors.New("grid: field outside physical bounds")

	// ErrUnknownField indicates a field name not present in a state.
	ErrUnknownField = errors.New("grid: unknown field")

	// ErrInvalidGrid indicates a grid with non-positive dimensions.
	ErrInvalidGrid = errors.New("grid: invalid grid dimensions")
)

// ShapeMismatchError carries the expected and actual sizes at the boundary
// where the mismatch was detected.
type ShapeMismatchError struct {
	Context string
	Want    int
	Got     int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: want %d values, got %d", e.Context, e.Want, e.Got)
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// InstabilityError records which field left its valid range and where.
type InstabilityError struct {
	Field string
	Index int
	Value float64
	Valid Bounds
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("field %q unstable at index %d: %g outside [%g, %g]",
		e.Field, e.Index, e.Value, e.Valid.Min, e.Valid.Max)
}

func (e *InstabilityError) Unwrap() error { return ErrNumericalInstability }

// UnknownFieldError names the missing field.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("no field %q in state", e.Name)
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }
