package reference

import (
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
)

var (
	ErrNoMatchingReference = errors.New("no matching reference")
	ErrInvalidReference    = errors.New("not a valid reference")
)

// NoMatchError is returned when no candidate matches the installed
// version and platform.
type NoMatchError struct {
	Version  string
	Platform trees.Platform
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no reference found for installed version %s (%s)", e.Version, e.Platform)
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatchingReference }

// InvalidReferenceError is returned for reference data that cannot be decoded.
type InvalidReferenceError struct {
	Source string
	Err    error
}

func (e *InvalidReferenceError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("not a valid reference: %v", e.Err)
	}
	return fmt.Sprintf("%s is not a valid reference: %v", e.Source, e.Err)
}

func (e *InvalidReferenceError) Unwrap() error { return e.Err }

func (e *InvalidReferenceError) Is(target error) bool { return target == ErrInvalidReference }
