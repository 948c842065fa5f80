package admin

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemAdminRepository implements AdminRepository using an in-memory map
type InMemAdminRepository struct {
	accounts map[uuid.UUID]AdminAccount
	byEmail  map[string]uuid.UUID
	mu       sync.Mutex
}

// NewInMemAdminRepository creates a new in-memory admin repository
func NewInMemAdminRepository() *InMemAdminRepository {
	return &InMemAdminRepository{
		accounts: make(map[uuid.UUID]AdminAccount),
		byEmail:  make(map[string]uuid.UUID),
	}
}

func (r *InMemAdminRepository) CreateAdmin(ctx context.Context, account AdminAccount) (AdminAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(account.Email)
	if _, exists := r.byEmail[key]; exists {
		return AdminAccount{}, ErrAccountExists{Email: account.Email}
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	r.accounts[account.ID] = account
	r.byEmail[key] = account.ID
	slog.Debug("Admin account created", "id", account.ID, "email", account.Email)
	return account, nil
}

func (r *InMemAdminRepository) GetAdminByEmail(ctx context.Context, email string) (AdminAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, exists := r.byEmail[strings.ToLower(email)]
	if !exists {
		return AdminAccount{}, ErrAccountNotFound
	}
	return r.accounts[id], nil
}

func (r *InMemAdminRepository) GetAdminByID(ctx context.Context, id uuid.UUID) (AdminAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return AdminAccount{}, ErrAccountNotFound
	}
	return account, nil
}
