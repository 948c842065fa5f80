package admin

import (
	"errors"
	"fmt"
)

// ErrAccountNotFound is returned when no admin account matches the lookup key.
var ErrAccountNotFound = errors.New("admin account not found")

// ErrAccountExists is returned when attempting to register an admin with an
// email that is already registered.
type ErrAccountExists struct {
	Email string
}

func (e ErrAccountExists) Error() string {
	return fmt.Sprintf("admin account already exists: %s", e.Email)
}
