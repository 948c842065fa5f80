package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// DeviceService handles device identity management and answers the
// ownership question every delegation request must pass.
type DeviceService struct {
	deviceRepository DeviceRepository
}

// NewDeviceService creates a new device service with the given repository
func NewDeviceService(deviceRepository DeviceRepository) *DeviceService {
	return &DeviceService{
		deviceRepository: deviceRepository,
	}
}

// UpsertBinding creates or rebinds a device identity for the given external
// email. Rebinding follows last-admin-wins semantics.
func (s *DeviceService) UpsertBinding(ctx context.Context, identity DeviceIdentity) (DeviceIdentity, error) {
	bound, err := s.deviceRepository.UpsertDevice(ctx, identity)
	if err != nil {
		return DeviceIdentity{}, fmt.Errorf("failed to upsert device binding: %w", err)
	}
	slog.Info("Device bound to admin",
		"device_id", bound.ID,
		"email", bound.Email,
		"admin_id", bound.AdminID)
	return bound, nil
}

// ListDevices returns all devices bound to the admin in stable binding order.
// An admin with no linked devices gets an empty slice, never an error.
func (s *DeviceService) ListDevices(ctx context.Context, adminID uuid.UUID) ([]DeviceIdentity, error) {
	devices, err := s.deviceRepository.FindDevicesByAdmin(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to find devices for admin: %w", err)
	}
	slog.Debug("Found devices for admin", "admin_id", adminID, "device_count", len(devices))
	return devices, nil
}

// IsOwned reports whether the device is currently bound to the admin. This is
// the single authorization check for delegation; a missing device is simply
// not owned.
func (s *DeviceService) IsOwned(ctx context.Context, adminID, deviceID uuid.UUID) (bool, error) {
	d, err := s.deviceRepository.GetDeviceByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check device ownership: %w", err)
	}
	return d.AdminID == adminID, nil
}

// GetDevice returns the device identity by ID.
func (s *DeviceService) GetDevice(ctx context.Context, deviceID uuid.UUID) (DeviceIdentity, error) {
	return s.deviceRepository.GetDeviceByID(ctx, deviceID)
}

// GetDeviceByEmail returns the device identity bound to the external email.
func (s *DeviceService) GetDeviceByEmail(ctx context.Context, email string) (DeviceIdentity, error) {
	return s.deviceRepository.GetDeviceByEmail(ctx, email)
}
