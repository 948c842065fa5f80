package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	"github.com/devicelink/delegate-idm/pkg/delegation"
	"github.com/devicelink/delegate-idm/pkg/mailrelay"
	"github.com/devicelink/delegate-idm/pkg/tokenvault"
)

// ListMessagesResponse represents a mailbox listing
type ListMessagesResponse struct {
	Messages []mailrelay.Message `json:"messages"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler exposes the mailbox relay over HTTP. The bearer token on every
// request is a delegation grant token, not an admin session.
type Handler struct {
	service *mailrelay.Service
}

// NewHandler creates a new mail relay API handler
func NewHandler(service *mailrelay.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the mailbox relay routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/messages", h.ListMessages)
	r.Get("/search", h.SearchMessages)
	r.Post("/send", h.SendMessage)
}

// ListMessages handles GET /messages
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	grantToken := jwtauth.TokenFromHeader(r)
	if grantToken == "" {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Missing grant token"})
		return
	}

	messages, err := h.service.ListMessages(r.Context(), grantToken, r.URL.Query().Get("folder"))
	if err != nil {
		h.renderRelayError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ListMessagesResponse{Messages: messages})
}

// SearchMessages handles GET /search
func (h *Handler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	grantToken := jwtauth.TokenFromHeader(r)
	if grantToken == "" {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Missing grant token"})
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "q is required"})
		return
	}

	messages, err := h.service.SearchMessages(r.Context(), grantToken, query)
	if err != nil {
		h.renderRelayError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ListMessagesResponse{Messages: messages})
}

// SendMessage handles POST /send
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	grantToken := jwtauth.TokenFromHeader(r)
	if grantToken == "" {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Missing grant token"})
		return
	}

	var req mailrelay.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.To == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "to is required"})
		return
	}

	sent, err := h.service.SendMessage(r.Context(), grantToken, req)
	if err != nil {
		h.renderRelayError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, sent)
}

func (h *Handler) renderRelayError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, delegation.ErrGrantUnknown), errors.Is(err, delegation.ErrGrantNotLive):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Grant is not valid"})
	case errors.Is(err, delegation.ErrDeviceTokenMissing):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{Error: "Device has not completed authorization"})
	case errors.Is(err, tokenvault.ErrRefreshFailed):
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, ErrorResponse{Error: "Mailbox access could not be refreshed"})
	default:
		slog.Error("Mailbox relay request failed", "error", err)
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, ErrorResponse{Error: "Mailbox request failed"})
	}
}
