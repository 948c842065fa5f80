package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresSessionRepository implements SessionRepository using PostgreSQL
type PostgresSessionRepository struct {
	db DBTX
}

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// NewPostgresSessionRepository creates a new PostgreSQL session repository
func NewPostgresSessionRepository(db DBTX) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

const sessionColumns = "id, admin_id, jti, issued_at, expires_at, revoked_at"

func scanSession(row pgx.Row) (AdminSession, error) {
	var s AdminSession
	err := row.Scan(&s.ID, &s.AdminID, &s.JTI, &s.IssuedAt, &s.ExpiresAt, &s.RevokedAt)
	return s, err
}

func (r *PostgresSessionRepository) Create(ctx context.Context, session AdminSession) (AdminSession, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	query := `
		INSERT INTO admin_session (id, admin_id, jti, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + sessionColumns

	created, err := scanSession(r.db.QueryRow(ctx, query, session.ID, session.AdminID, session.JTI, session.IssuedAt, session.ExpiresAt))
	if err != nil {
		return AdminSession{}, fmt.Errorf("failed to create session: %w", err)
	}
	return created, nil
}

func (r *PostgresSessionRepository) GetByJTI(ctx context.Context, jti string) (AdminSession, error) {
	query := "SELECT " + sessionColumns + " FROM admin_session WHERE jti = $1"
	s, err := scanSession(r.db.QueryRow(ctx, query, jti))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminSession{}, ErrSessionUnknown
		}
		return AdminSession{}, fmt.Errorf("failed to get session by jti: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (AdminSession, error) {
	query := "SELECT " + sessionColumns + " FROM admin_session WHERE id = $1"
	s, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminSession{}, ErrSessionUnknown
		}
		return AdminSession{}, fmt.Errorf("failed to get session by id: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionRepository) Revoke(ctx context.Context, jti string) error {
	query := `
		UPDATE admin_session
		SET revoked_at = $2
		WHERE jti = $1 AND revoked_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, jti, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either unknown or already revoked; distinguish for the caller.
		if _, err := r.GetByJTI(ctx, jti); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresSessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.Exec(ctx, "DELETE FROM admin_session WHERE expires_at < $1", cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
