package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresAdminRepository implements AdminRepository using PostgreSQL
type PostgresAdminRepository struct {
	db DBTX
}

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// NewPostgresAdminRepository creates a new PostgreSQL admin repository
func NewPostgresAdminRepository(db DBTX) *PostgresAdminRepository {
	return &PostgresAdminRepository{db: db}
}

const uniqueViolationCode = "23505"

func (r *PostgresAdminRepository) CreateAdmin(ctx context.Context, account AdminAccount) (AdminAccount, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO admin_account (id, name, email, password_hash, created_at)
		VALUES ($1, $2, lower($3), $4, $5)
		RETURNING id, name, email, password_hash, created_at
	`
	row := r.db.QueryRow(ctx, query, account.ID, account.Name, account.Email, account.PasswordHash, account.CreatedAt)

	var created AdminAccount
	err := row.Scan(&created.ID, &created.Name, &created.Email, &created.PasswordHash, &created.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return AdminAccount{}, ErrAccountExists{Email: account.Email}
		}
		return AdminAccount{}, fmt.Errorf("failed to create admin account: %w", err)
	}
	return created, nil
}

func (r *PostgresAdminRepository) GetAdminByEmail(ctx context.Context, email string) (AdminAccount, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM admin_account
		WHERE email = lower($1)
	`
	var account AdminAccount
	err := r.db.QueryRow(ctx, query, email).Scan(&account.ID, &account.Name, &account.Email, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminAccount{}, ErrAccountNotFound
		}
		return AdminAccount{}, fmt.Errorf("failed to get admin account by email: %w", err)
	}
	return account, nil
}

func (r *PostgresAdminRepository) GetAdminByID(ctx context.Context, id uuid.UUID) (AdminAccount, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM admin_account
		WHERE id = $1
	`
	var account AdminAccount
	err := r.db.QueryRow(ctx, query, id).Scan(&account.ID, &account.Name, &account.Email, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminAccount{}, ErrAccountNotFound
		}
		return AdminAccount{}, fmt.Errorf("failed to get admin account by id: %w", err)
	}
	return account, nil
}
