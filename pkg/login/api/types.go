package api

// RegisterAdminRequest represents the request to register an admin account
type RegisterAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterAdminResponse carries the new account and an immediately usable
// session token, so registration doubles as the first login.
type RegisterAdminResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// LoginAdminRequest represents the request to log in as an admin. DeviceID is
// the caller's recognition key; it is never an authentication factor.
type LoginAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId,omitempty"`
}

// LoginAdminResponse carries the session token and its absolute expiry
type LoginAdminResponse struct {
	Token     string `json:"token"`
	AdminID   string `json:"admin_id"`
	ExpiresAt string `json:"expires_at"`
}

// LogoutResponse represents the response after logout
type LogoutResponse struct {
	Message string `json:"message"`
}

// DeviceBoundResponse represents the device identity after an OAuth callback
type DeviceBoundResponse struct {
	ID          string `json:"id"`
	DeviceKey   string `json:"device_key"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Picture     string `json:"picture,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
