package cli

import (
	"errors"
	"fmt"

	"threadlist/internal/store"
)

// Exit codes returned by the threadlist binary.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitNotFound = 3
)

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func errUsage(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage):
		return ExitUsage
	case errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	default:
		return ExitFailure
	}
}
