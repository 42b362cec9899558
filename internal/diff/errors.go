package diff

import (
	"errors"
	"fmt"
)

// ErrInconsistentState matches every *DiffError through errors.Is.
var ErrInconsistentState = errors.New("inconsistent render state")

type ErrorKind int

const (
	InconsistentState ErrorKind = iota + 1
)

type DiffError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *DiffError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("diff: %s: %s: %v", ErrInconsistentState, e.Reason, e.Err)
	}
	return fmt.Sprintf("diff: %s: %s", ErrInconsistentState, e.Reason)
}

func (e *DiffError) Unwrap() error { return e.Err }

func (e *DiffError) Is(target error) bool {
	return target == ErrInconsistentState && e.Kind == InconsistentState
}

func inconsistent(err error, format string, args ...any) *DiffError {
	return &DiffError{Kind: InconsistentState, Reason: fmt.Sprintf(format, args...), Err: err}
}
