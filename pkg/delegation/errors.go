package delegation

import "errors"

var (
	// ErrUnauthorized is returned when the admin session backing a delegation
	// request is missing, expired or logged out.
	ErrUnauthorized = errors.New("admin session is not valid")

	// ErrNotOwned is returned when the target device is not bound to the
	// calling admin. It is an authorization failure, deliberately not a
	// not-found, so device existence is not leaked.
	ErrNotOwned = errors.New("device is not linked to this admin")

	// ErrDeviceTokenMissing is returned when the device never completed an
	// OAuth handoff and therefore cannot be impersonated.
	ErrDeviceTokenMissing = errors.New("device has no stored token material")

	// ErrGrantUnknown is returned for grant tokens that do not resolve to a
	// recorded grant.
	ErrGrantUnknown = errors.New("unknown delegation grant")

	// ErrGrantNotLive is returned when a resolved grant is expired, revoked
	// or superseded. Callers can inspect the accompanying status.
	ErrGrantNotLive = errors.New("delegation grant is not live")
)
