package tokenvault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresVaultRepository implements VaultRepository using PostgreSQL
type PostgresVaultRepository struct {
	db DBTX
}

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// NewPostgresVaultRepository creates a new PostgreSQL vault repository
func NewPostgresVaultRepository(db DBTX) *PostgresVaultRepository {
	return &PostgresVaultRepository{db: db}
}

func (r *PostgresVaultRepository) StoreToken(ctx context.Context, deviceID uuid.UUID, material TokenMaterial) error {
	query := `
		INSERT INTO device_token (device_id, access_token, refresh_token, token_type, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, deviceID, material.AccessToken, material.RefreshToken, material.TokenType, material.ExpiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store token material: %w", err)
	}
	return nil
}

func (r *PostgresVaultRepository) GetToken(ctx context.Context, deviceID uuid.UUID) (TokenMaterial, error) {
	query := `
		SELECT access_token, refresh_token, token_type, expires_at
		FROM device_token
		WHERE device_id = $1
	`
	var material TokenMaterial
	err := r.db.QueryRow(ctx, query, deviceID).Scan(&material.AccessToken, &material.RefreshToken, &material.TokenType, &material.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenMaterial{}, ErrTokenNotFound
		}
		return TokenMaterial{}, fmt.Errorf("failed to get token material: %w", err)
	}
	return material, nil
}
