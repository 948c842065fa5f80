package device

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemDeviceRepository implements DeviceRepository using an in-memory map
type InMemDeviceRepository struct {
	devices map[string]DeviceIdentity // keyed by lowercased external email
	nextSeq int64
	mu      sync.Mutex
}

// NewInMemDeviceRepository creates a new in-memory device repository
func NewInMemDeviceRepository() *InMemDeviceRepository {
	return &InMemDeviceRepository{
		devices: make(map[string]DeviceIdentity),
	}
}

func (r *InMemDeviceRepository) UpsertDevice(ctx context.Context, identity DeviceIdentity) (DeviceIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := strings.ToLower(identity.Email)

	existing, exists := r.devices[key]
	if exists {
		// Rebind: last admin to complete the OAuth flow wins.
		identity.ID = existing.ID
		identity.CreatedAt = existing.CreatedAt
		slog.Info("Rebinding existing device", "email", identity.Email, "admin_id", identity.AdminID)
	} else {
		if identity.ID == uuid.Nil {
			identity.ID = uuid.New()
		}
		if identity.CreatedAt.IsZero() {
			identity.CreatedAt = now
		}
		slog.Info("Creating new device", "email", identity.Email, "admin_id", identity.AdminID)
	}

	r.nextSeq++
	identity.LinkSeq = r.nextSeq
	identity.LinkedAt = now
	r.devices[key] = identity
	return identity, nil
}

func (r *InMemDeviceRepository) GetDeviceByID(ctx context.Context, id uuid.UUID) (DeviceIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.devices {
		if d.ID == id {
			return d, nil
		}
	}
	return DeviceIdentity{}, ErrDeviceNotFound
}

func (r *InMemDeviceRepository) GetDeviceByEmail(ctx context.Context, email string) (DeviceIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.devices[strings.ToLower(email)]
	if !exists {
		return DeviceIdentity{}, ErrDeviceNotFound
	}
	return d, nil
}

func (r *InMemDeviceRepository) FindDevicesByAdmin(ctx context.Context, adminID uuid.UUID) ([]DeviceIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices := make([]DeviceIdentity, 0)
	for _, d := range r.devices {
		if d.AdminID == adminID {
			devices = append(devices, d)
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].LinkSeq < devices[j].LinkSeq
	})
	return devices, nil
}
