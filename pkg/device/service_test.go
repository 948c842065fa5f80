package device

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertBindingCreatesDevice(t *testing.T) {
	ctx := context.Background()
	service := NewDeviceService(NewInMemDeviceRepository())
	adminID := uuid.New()

	bound, err := service.UpsertBinding(ctx, DeviceIdentity{
		DeviceKey:   "device-1",
		Email:       "Device@Example.com",
		AdminID:     adminID,
		DisplayName: "Device One",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, bound.ID)
	assert.False(t, bound.LinkedAt.IsZero())

	found, err := service.GetDeviceByEmail(ctx, "device@example.com")
	require.NoError(t, err)
	assert.Equal(t, bound.ID, found.ID)
}

func TestRebindLastAdminWins(t *testing.T) {
	ctx := context.Background()
	service := NewDeviceService(NewInMemDeviceRepository())
	firstAdmin := uuid.New()
	secondAdmin := uuid.New()

	original, err := service.UpsertBinding(ctx, DeviceIdentity{
		DeviceKey: "device-1",
		Email:     "device@example.com",
		AdminID:   firstAdmin,
	})
	require.NoError(t, err)

	rebound, err := service.UpsertBinding(ctx, DeviceIdentity{
		DeviceKey: "device-1",
		Email:     "device@example.com",
		AdminID:   secondAdmin,
	})
	require.NoError(t, err)

	// The external account keeps one identity; only the owner changes.
	assert.Equal(t, original.ID, rebound.ID)
	assert.Equal(t, secondAdmin, rebound.AdminID)

	owned, err := service.IsOwned(ctx, firstAdmin, original.ID)
	require.NoError(t, err)
	assert.False(t, owned)

	owned, err = service.IsOwned(ctx, secondAdmin, original.ID)
	require.NoError(t, err)
	assert.True(t, owned)

	first, err := service.ListDevices(ctx, firstAdmin)
	require.NoError(t, err)
	assert.Empty(t, first)
}

func TestListDevicesStableOrder(t *testing.T) {
	ctx := context.Background()
	service := NewDeviceService(NewInMemDeviceRepository())
	adminID := uuid.New()

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	for _, email := range emails {
		_, err := service.UpsertBinding(ctx, DeviceIdentity{
			DeviceKey: email,
			Email:     email,
			AdminID:   adminID,
		})
		require.NoError(t, err)
	}

	devices, err := service.ListDevices(ctx, adminID)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	for i, email := range emails {
		assert.Equal(t, email, devices[i].Email)
	}
}

func TestListDevicesEmpty(t *testing.T) {
	ctx := context.Background()
	service := NewDeviceService(NewInMemDeviceRepository())

	devices, err := service.ListDevices(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}

func TestIsOwnedUnknownDevice(t *testing.T) {
	ctx := context.Background()
	service := NewDeviceService(NewInMemDeviceRepository())

	owned, err := service.IsOwned(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, owned)
}
