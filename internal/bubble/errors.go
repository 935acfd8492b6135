package bubble

import (
	"errors"
	"fmt"
)

var (
	// ErrConstruction marks failures that prevent an engine from being built.
	ErrConstruction = errors.New("engine construction failed")

	// ErrMalformedGeometry is returned when a backend line carries a geometry
	// block that is missing required keys.
	ErrMalformedGeometry = errors.New("malformed line geometry")

	// ErrMalformedRect is returned when a backend line carries a bounding
	// quadrilateral that is missing corner coordinates.
	ErrMalformedRect = errors.New("malformed bounding rect")
)

// DecodeError describes a structural problem in one backend line.
type DecodeError struct {
	Line  int
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %v: missing %s", e.Line, e.Err, e.Field)
}

func (e *DecodeError) Unwrap() error { return e.Err }
