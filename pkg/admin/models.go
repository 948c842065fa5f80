package admin

import (
	"time"

	"github.com/google/uuid"
)

// AdminAccount represents a privileged identity that can enroll and
// act on behalf of linked device identities.
type AdminAccount struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
