package users

import (
	"fmt"

	"github.com/inkroom/inkroom/internal/shared"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = fmt.Errorf("users: user %w", shared.ErrNotFound)

// User is a directory entry.
type User struct {
	ID       string `json:"id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
}
