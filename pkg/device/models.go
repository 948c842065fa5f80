package device

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDeviceNotFound is returned when no device identity matches the lookup key.
var ErrDeviceNotFound = errors.New("device not found")

// DeviceIdentity represents an external account that completed the third-party
// OAuth flow and is bound to exactly one admin account at a time. The device
// key is a client-generated recognition key, not a security boundary.
type DeviceIdentity struct {
	ID          uuid.UUID `json:"id"`
	DeviceKey   string    `json:"device_key"`
	Email       string    `json:"email"` // external account email, the upsert key
	AdminID     uuid.UUID `json:"admin_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Picture     string    `json:"picture,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LinkedAt    time.Time `json:"linked_at"`
	LinkSeq     int64     `json:"-"` // insertion order of the current binding
}

// DeviceRepository defines the interface for device identity storage operations.
// There is no delete operation: device records persist indefinitely.
type DeviceRepository interface {
	// UpsertDevice creates the device or, when a device with the same external
	// email exists, rebinds it. The original ID and CreatedAt are preserved on
	// rebind; AdminID, DeviceKey, profile metadata and LinkedAt are overwritten.
	// The upsert is atomic per external email.
	UpsertDevice(ctx context.Context, identity DeviceIdentity) (DeviceIdentity, error)

	GetDeviceByID(ctx context.Context, id uuid.UUID) (DeviceIdentity, error)
	GetDeviceByEmail(ctx context.Context, email string) (DeviceIdentity, error)

	// FindDevicesByAdmin returns the devices currently bound to the admin in
	// stable binding-insertion order. An admin with no devices gets an empty
	// slice, not an error.
	FindDevicesByAdmin(ctx context.Context, adminID uuid.UUID) ([]DeviceIdentity, error)
}
