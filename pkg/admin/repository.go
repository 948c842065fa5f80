package admin

import (
	"context"

	"github.com/google/uuid"
)

// AdminRepository defines the interface for admin account storage operations.
// There is deliberately no delete operation: admin accounts are never hard-deleted.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, account AdminAccount) (AdminAccount, error)
	GetAdminByEmail(ctx context.Context, email string) (AdminAccount, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (AdminAccount, error)
}
