package login

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is the single error returned for any admin login
// failure. Unknown email and wrong password are indistinguishable to the
// caller.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationError reports a rejected registration or login input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
