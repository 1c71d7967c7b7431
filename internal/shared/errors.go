package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique key collision.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput indicates a request failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

// UserSafeMessage maps an error onto a message that can be shown to end users
// without leaking driver or SQL details.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested item was not found."
	case errors.Is(err, ErrAlreadyExists):
		return "An item with the same identifier already exists."
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	default:
		return "Something went wrong, please try again."
	}
}
