// Package errkind defines the error kinds shared by every package of the module. Packages
// declare their own sentinel errors wrapping one of these kinds so callers can match either
// the precise failure or its broad category with errors.Is.
package errkind

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports a missing, malformed or conflicting horizon or window
	// parameter.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFitted reports a post-fit operation invoked before fit.
	ErrNotFitted = errors.New("not fitted")

	// ErrType reports an input container that is not a recognized series type.
	ErrType = errors.New("type error")

	// ErrValue reports data whose shape or content contradicts what the receiver supports.
	ErrValue = errors.New("value error")

	// ErrUnsupported reports an optional operation the receiver does not implement.
	ErrUnsupported = errors.New("unsupported operation")
)

// UnsupportedError is returned when an optional capability is not available on a model.
type UnsupportedError struct {
	Op    string
	Model string
}

func (e *UnsupportedError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s not supported", e.Op)
	}
	return fmt.Sprintf("%s does not support %s", e.Model, e.Op)
}

// Is matches ErrUnsupported
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// Unsupported returns an UnsupportedError for the operation on the named model.
func Unsupported(model, op string) error {
	return &UnsupportedError{Op: op, Model: model}
}

// IsUnsupported reports whether err signals an unsupported optional operation rather than a
// real failure.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}
