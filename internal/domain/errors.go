package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the store and collection layers. Handlers
// branch on these with errors.Is to pick a response status.
var (
	// ErrListNotFound means the list id does not exist or does not belong
	// to the requesting owner.
	ErrListNotFound = errors.New("todo list not found")

	// ErrTodoNotFound means the todo id does not exist in the given list.
	ErrTodoNotFound = errors.New("todo not found")

	// ErrDuplicateTitle means another list owned by the same user already
	// carries the requested title.
	ErrDuplicateTitle = errors.New("list title already in use")

	// ErrIndexOutOfRange is returned by positional TodoList accessors for
	// any index outside [0, len).
	ErrIndexOutOfRange = errors.New("todo index out of range")

	// ErrInvalidCredentials means the username/password pair did not
	// resolve to a user.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError describes input that failed a format rule before reaching
// the store. The message is safe to show verbatim to the submitting user.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
