package apply

import (
	"errors"
	"fmt"
)

var (
	// ErrRequiresFullReload: the diff is valid but cannot be expressed as row edits.
	ErrRequiresFullReload = errors.New("requires full reload")
	// ErrWidgetRejected: the widget refused a primitive inside the batch.
	ErrWidgetRejected = errors.New("widget rejected operation")
)

type ErrorKind int

const (
	RequiresFullReload ErrorKind = iota + 1
	WidgetRejectedOperation
)

func (k ErrorKind) String() string {
	switch k {
	case RequiresFullReload:
		return "requires-full-reload"
	case WidgetRejectedOperation:
		return "widget-rejected-operation"
	default:
		return "unknown"
	}
}

type ApplyError struct {
	Kind ErrorKind
	// Step is the primitive that failed ("begin", "delete", "insert", "move",
	// "reload", "end"), empty for RequiresFullReload.
	Step string
	Err  error
}

func (e *ApplyError) Error() string {
	switch {
	case e.Kind == RequiresFullReload:
		return fmt.Sprintf("apply: %s", ErrRequiresFullReload)
	case e.Err != nil:
		return fmt.Sprintf("apply: %s during %s: %v", ErrWidgetRejected, e.Step, e.Err)
	default:
		return fmt.Sprintf("apply: %s during %s", ErrWidgetRejected, e.Step)
	}
}

func (e *ApplyError) Unwrap() error { return e.Err }

func (e *ApplyError) Is(target error) bool {
	switch target {
	case ErrRequiresFullReload:
		return e.Kind == RequiresFullReload
	case ErrWidgetRejected:
		return e.Kind == WidgetRejectedOperation
	}
	return false
}
