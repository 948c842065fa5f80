package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	"github.com/devicelink/delegate-idm/pkg/admin"
	"github.com/devicelink/delegate-idm/pkg/googleauth"
	"github.com/devicelink/delegate-idm/pkg/login"
	"github.com/devicelink/delegate-idm/pkg/session"
)

// Handler exposes the auth broker over HTTP
type Handler struct {
	service *login.AuthService
}

// NewHandler creates a new auth API handler
func NewHandler(service *login.AuthService) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the public auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register-admin", h.RegisterAdmin)
	r.Post("/login-admin", h.LoginAdmin)
	r.Post("/logout", h.Logout)
	r.Get("/google", h.BeginGoogle)
	r.Get("/google/callback", h.GoogleCallback)
}

// RegisterAdmin handles POST /register-admin
func (h *Handler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req RegisterAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	account, err := h.service.RegisterAdmin(r.Context(), login.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		var exists admin.ErrAccountExists
		switch {
		case login.IsValidationError(err):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: err.Error()})
		case errors.As(err, &exists):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, ErrorResponse{Error: "An account with this email already exists"})
		default:
			slog.Error("Failed to register admin", "error", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "An error occurred while registering"})
		}
		return
	}

	token, _, err := h.service.LoginAdmin(r.Context(), account.Email, req.Password)
	if err != nil {
		slog.Error("Failed to start session after registration", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while registering"})
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, RegisterAdminResponse{
		ID:    account.ID.String(),
		Name:  account.Name,
		Email: account.Email,
		Token: token,
	})
}

// LoginAdmin handles POST /login-admin
func (h *Handler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	var req LoginAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.DeviceID != "" {
		slog.Info("Admin login from recognized device", "device_key", req.DeviceID)
	}

	token, sess, err := h.service.LoginAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, login.ErrInvalidCredentials) {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Error: "Invalid email or password"})
			return
		}
		slog.Error("Failed to log in admin", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while logging in"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginAdminResponse{
		Token:     token,
		AdminID:   sess.AdminID.String(),
		ExpiresAt: sess.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := jwtauth.TokenFromHeader(r)
	if token == "" {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Missing bearer token"})
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		if errors.Is(err, session.ErrSessionUnknown) {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Error: "Invalid session"})
			return
		}
		slog.Error("Failed to log out", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while logging out"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LogoutResponse{Message: "Logged out"})
}

// BeginGoogle handles GET /google. The browser is navigated here directly, so
// the session token may arrive as a query parameter instead of a header.
func (h *Handler) BeginGoogle(w http.ResponseWriter, r *http.Request) {
	token := jwtauth.TokenFromHeader(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	deviceKey := r.URL.Query().Get("deviceId")
	if deviceKey == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "deviceId is required"})
		return
	}

	authURL, err := h.service.BeginDeviceOAuth(r.Context(), token, deviceKey)
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) || errors.Is(err, session.ErrSessionUnknown) {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Error: "Invalid session"})
			return
		}
		slog.Error("Failed to start device oauth", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while starting authorization"})
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback handles GET /google/callback
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "state and code are required"})
		return
	}

	bound, err := h.service.CompleteDeviceOAuth(r.Context(), state, code)
	if err != nil {
		if errors.Is(err, googleauth.ErrInvalidState) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "Invalid or expired authorization state"})
			return
		}
		slog.Error("Failed to complete device oauth", "error", err)
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, ErrorResponse{Error: "Authorization could not be completed"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, DeviceBoundResponse{
		ID:          bound.ID.String(),
		DeviceKey:   bound.DeviceKey,
		Email:       bound.Email,
		DisplayName: bound.DisplayName,
		Picture:     bound.Picture,
	})
}
