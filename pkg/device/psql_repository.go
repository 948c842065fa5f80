package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresDeviceRepository implements DeviceRepository using PostgreSQL
type PostgresDeviceRepository struct {
	db DBTX
}

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// NewPostgresDeviceRepository creates a new PostgreSQL device repository
func NewPostgresDeviceRepository(db DBTX) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{db: db}
}

const deviceColumns = "id, device_key, email, admin_id, display_name, picture, created_at, linked_at, link_seq"

func scanDevice(row pgx.Row) (DeviceIdentity, error) {
	var d DeviceIdentity
	err := row.Scan(&d.ID, &d.DeviceKey, &d.Email, &d.AdminID, &d.DisplayName, &d.Picture, &d.CreatedAt, &d.LinkedAt, &d.LinkSeq)
	return d, err
}

// UpsertDevice inserts the device or rebinds the existing row for the same
// external email. ON CONFLICT keeps the upsert atomic per email so concurrent
// OAuth callbacks for the same device cannot interleave a partial write.
func (r *PostgresDeviceRepository) UpsertDevice(ctx context.Context, identity DeviceIdentity) (DeviceIdentity, error) {
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	now := time.Now().UTC()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}

	query := `
		INSERT INTO device_identity (id, device_key, email, admin_id, display_name, picture, created_at, linked_at, link_seq)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, nextval('device_link_seq'))
		ON CONFLICT (email) DO UPDATE SET
			device_key = EXCLUDED.device_key,
			admin_id = EXCLUDED.admin_id,
			display_name = EXCLUDED.display_name,
			picture = EXCLUDED.picture,
			linked_at = EXCLUDED.linked_at,
			link_seq = nextval('device_link_seq')
		RETURNING ` + deviceColumns

	d, err := scanDevice(r.db.QueryRow(ctx, query,
		identity.ID, identity.DeviceKey, identity.Email, identity.AdminID,
		identity.DisplayName, identity.Picture, identity.CreatedAt, now))
	if err != nil {
		return DeviceIdentity{}, fmt.Errorf("failed to upsert device: %w", err)
	}
	return d, nil
}

func (r *PostgresDeviceRepository) GetDeviceByID(ctx context.Context, id uuid.UUID) (DeviceIdentity, error) {
	query := "SELECT " + deviceColumns + " FROM device_identity WHERE id = $1"
	d, err := scanDevice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeviceIdentity{}, ErrDeviceNotFound
		}
		return DeviceIdentity{}, fmt.Errorf("failed to get device by id: %w", err)
	}
	return d, nil
}

func (r *PostgresDeviceRepository) GetDeviceByEmail(ctx context.Context, email string) (DeviceIdentity, error) {
	query := "SELECT " + deviceColumns + " FROM device_identity WHERE email = lower($1)"
	d, err := scanDevice(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeviceIdentity{}, ErrDeviceNotFound
		}
		return DeviceIdentity{}, fmt.Errorf("failed to get device by email: %w", err)
	}
	return d, nil
}

func (r *PostgresDeviceRepository) FindDevicesByAdmin(ctx context.Context, adminID uuid.UUID) ([]DeviceIdentity, error) {
	query := "SELECT " + deviceColumns + " FROM device_identity WHERE admin_id = $1 ORDER BY link_seq"
	rows, err := r.db.Query(ctx, query, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to find devices by admin: %w", err)
	}
	defer rows.Close()

	devices := make([]DeviceIdentity, 0)
	for rows.Next() {
		var d DeviceIdentity
		if err := rows.Scan(&d.ID, &d.DeviceKey, &d.Email, &d.AdminID, &d.DisplayName, &d.Picture, &d.CreatedAt, &d.LinkedAt, &d.LinkSeq); err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}
