package delegation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresGrantRepository implements GrantRepository using PostgreSQL. It
// takes the pool rather than a DBTX because SupersedeAndCreate opens its own
// transaction.
type PostgresGrantRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresGrantRepository creates a new PostgreSQL grant repository
func NewPostgresGrantRepository(pool *pgxpool.Pool) *PostgresGrantRepository {
	return &PostgresGrantRepository{pool: pool}
}

const grantColumns = "id, jti, session_id, admin_id, device_id, device_email, issued_at, expires_at, superseded_at"

func scanGrant(row pgx.Row) (Grant, error) {
	var g Grant
	err := row.Scan(&g.ID, &g.JTI, &g.SessionID, &g.AdminID, &g.DeviceID, &g.DeviceEmail, &g.IssuedAt, &g.ExpiresAt, &g.SupersededAt)
	return g, err
}

// SupersedeAndCreate supersedes any live grant for the pair and inserts the
// new grant in one transaction. A transaction-scoped advisory lock on the
// (admin, device) pair serializes concurrent mints; row locks alone cannot,
// since two first-time mints would both see zero live rows to update. The
// unique partial index on the pair backstops the invariant in the database.
func (r *PostgresGrantRepository) SupersedeAndCreate(ctx context.Context, grant Grant) (Grant, error) {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Grant{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))",
		grant.AdminID.String(), grant.DeviceID.String())
	if err != nil {
		return Grant{}, fmt.Errorf("failed to lock grant pair: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE delegation_grant
		SET superseded_at = $3
		WHERE admin_id = $1 AND device_id = $2 AND superseded_at IS NULL
	`, grant.AdminID, grant.DeviceID, time.Now().UTC())
	if err != nil {
		return Grant{}, fmt.Errorf("failed to supersede prior grants: %w", err)
	}

	created, err := scanGrant(tx.QueryRow(ctx, `
		INSERT INTO delegation_grant (id, jti, session_id, admin_id, device_id, device_email, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+grantColumns,
		grant.ID, grant.JTI, grant.SessionID, grant.AdminID, grant.DeviceID, grant.DeviceEmail, grant.IssuedAt, grant.ExpiresAt))
	if err != nil {
		return Grant{}, fmt.Errorf("failed to insert grant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Grant{}, fmt.Errorf("failed to commit grant transaction: %w", err)
	}
	return created, nil
}

func (r *PostgresGrantRepository) GetByJTI(ctx context.Context, jti string) (Grant, error) {
	query := "SELECT " + grantColumns + " FROM delegation_grant WHERE jti = $1"
	g, err := scanGrant(r.pool.QueryRow(ctx, query, jti))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, ErrGrantUnknown
		}
		return Grant{}, fmt.Errorf("failed to get grant by jti: %w", err)
	}
	return g, nil
}

func (r *PostgresGrantRepository) FindByPair(ctx context.Context, adminID, deviceID uuid.UUID) ([]Grant, error) {
	query := "SELECT " + grantColumns + " FROM delegation_grant WHERE admin_id = $1 AND device_id = $2 ORDER BY issued_at"
	rows, err := r.pool.Query(ctx, query, adminID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find grants by pair: %w", err)
	}
	defer rows.Close()

	grants := make([]Grant, 0)
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.JTI, &g.SessionID, &g.AdminID, &g.DeviceID, &g.DeviceEmail, &g.IssuedAt, &g.ExpiresAt, &g.SupersededAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant row: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (r *PostgresGrantRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM delegation_grant WHERE expires_at < $1", cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired grants: %w", err)
	}
	return nil
}
