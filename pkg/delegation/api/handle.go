package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/devicelink/delegate-idm/pkg/client"
	"github.com/devicelink/delegate-idm/pkg/delegation"
	"github.com/devicelink/delegate-idm/pkg/device"
)

// LoginToDeviceRequest asks to act as the device behind DeviceBEmail. DeviceID
// is the caller's recognition key and is never used to authorize.
type LoginToDeviceRequest struct {
	DeviceBEmail string `json:"deviceBEmail"`
	DeviceID     string `json:"deviceId,omitempty"`
}

// LoginToDeviceResponse carries the grant token and the handoff redirect
type LoginToDeviceResponse struct {
	GrantToken  string `json:"grant_token"`
	RedirectURL string `json:"redirect_url"`
	ExpiresAt   string `json:"expires_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler exposes delegation over HTTP. Mount under an authenticated route
// group.
type Handler struct {
	service *delegation.Service
	devices *device.DeviceService
}

// NewHandler creates a new delegation API handler
func NewHandler(service *delegation.Service, devices *device.DeviceService) *Handler {
	return &Handler{
		service: service,
		devices: devices,
	}
}

// RegisterRoutes registers the delegation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/device-a/login-to-device", h.LoginToDevice)
}

// LoginToDevice handles POST /device-a/login-to-device
func (h *Handler) LoginToDevice(w http.ResponseWriter, r *http.Request) {
	authAdmin, err := client.GetAuthAdmin(r.Context())
	if err != nil {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req LoginToDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.DeviceBEmail == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "deviceBEmail is required"})
		return
	}

	// A missing device is reported exactly like an unowned one, so probing
	// emails reveals nothing.
	target, err := h.devices.GetDeviceByEmail(r.Context(), req.DeviceBEmail)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, ErrorResponse{Error: "Device is not linked to this account"})
			return
		}
		slog.Error("Failed to resolve device", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while logging in to the device"})
		return
	}

	result, err := h.service.Delegate(r.Context(), authAdmin.Token, target.ID)
	if err != nil {
		switch {
		case errors.Is(err, delegation.ErrUnauthorized):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		case errors.Is(err, delegation.ErrNotOwned):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, ErrorResponse{Error: "Device is not linked to this account"})
		case errors.Is(err, delegation.ErrDeviceTokenMissing):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, ErrorResponse{Error: "Device has not completed authorization"})
		default:
			slog.Error("Failed to delegate to device", "error", err, "device_id", target.ID)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "An error occurred while logging in to the device"})
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginToDeviceResponse{
		GrantToken:  result.GrantToken,
		RedirectURL: result.RedirectURL,
		ExpiresAt:   result.Grant.ExpiresAt.Format(time.RFC3339),
	})
}
