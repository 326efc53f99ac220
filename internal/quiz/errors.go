package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("authentication required")
	// ErrViewDenied is the soft failure: callers send the principal back home with a message.
	ErrViewDenied = errors.New("you do not have permission to view this quiz")
	// ErrEditDenied is the hard failure for edit-only surfaces.
	ErrEditDenied  = errors.New("access denied")
	ErrNotAuthor   = errors.New("only the quiz author can do this")
	ErrNoQuestions = errors.New("this quiz has no questions yet")
)

// InvalidError reports a rejected input field.
type InvalidError struct {
	Field string
	Msg   string
}

func (e *InvalidError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func Invalid(field, format string, args ...any) error {
	return &InvalidError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
