package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/devicelink/delegate-idm/pkg/client"
	"github.com/devicelink/delegate-idm/pkg/device"
)

// DeviceResponse represents one linked device in a listing
type DeviceResponse struct {
	ID          string `json:"id"`
	DeviceKey   string `json:"device_key"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	LinkedAt    string `json:"linked_at"`
}

// ListDevicesResponse represents the device listing for an admin
type ListDevicesResponse struct {
	Devices []DeviceResponse `json:"devices"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler exposes device listing over HTTP. Mount under an authenticated
// route group.
type Handler struct {
	service *device.DeviceService
}

// NewHandler creates a new device API handler
func NewHandler(service *device.DeviceService) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the device routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/list-devices", h.ListDevices)
}

// ListDevices handles GET /list-devices
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	authAdmin, err := client.GetAuthAdmin(r.Context())
	if err != nil {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if deviceKey := r.URL.Query().Get("deviceId"); deviceKey != "" {
		slog.Debug("Device listing from recognized device", "device_key", deviceKey)
	}

	devices, err := h.service.ListDevices(r.Context(), authAdmin.AdminID)
	if err != nil {
		slog.Error("Failed to list devices", "error", err, "admin_id", authAdmin.AdminID)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while listing devices"})
		return
	}

	response := ListDevicesResponse{Devices: make([]DeviceResponse, 0, len(devices))}
	for _, d := range devices {
		response.Devices = append(response.Devices, DeviceResponse{
			ID:          d.ID.String(),
			DeviceKey:   d.DeviceKey,
			Email:       d.Email,
			DisplayName: d.DisplayName,
			Picture:     d.Picture,
			LinkedAt:    d.LinkedAt.Format(time.RFC3339),
		})
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}
