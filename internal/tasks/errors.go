package tasks

import (
	"errors"
	"fmt"
)

// ValidationError marks bad input (missing title, unknown enum value).
// REST handlers map it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a missing task. REST handlers map it to 404.
type NotFoundError struct {
	ID    int
	Title string
}

func (e *NotFoundError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("no task matching title %q", e.Title)
	}
	return fmt.Sprintf("task %d not found", e.ID)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
