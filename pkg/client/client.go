package client

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// AuthAdmin is the authenticated admin attached to a request context after
// the session middleware has validated the bearer token.
type AuthAdmin struct {
	AdminID   uuid.UUID `json:"admin_id"`
	SessionID uuid.UUID `json:"session_id"`
	Token     string    `json:"-"`
}

func (a AuthAdmin) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("admin_id", a.AdminID.String()),
		slog.String("session_id", a.SessionID.String()),
	)
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "auth context value " + k.name
}

var AuthAdminKey = &contextKey{"AuthAdmin"}

// GetAuthAdmin returns the authenticated admin from the request context.
func GetAuthAdmin(ctx context.Context) (AuthAdmin, error) {
	authAdmin, ok := ctx.Value(AuthAdminKey).(AuthAdmin)
	if !ok {
		return AuthAdmin{}, errors.New("no authenticated admin in context")
	}
	return authAdmin, nil
}
