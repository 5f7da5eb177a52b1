package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Aimecol/hforher/internal/service"
	"github.com/Aimecol/hforher/pkg/httputil"
	"github.com/Aimecol/hforher/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, l *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: l}
}

// SetOpenRequest is the body of PUT /cart/open.
type SetOpenRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, cart)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, cart)
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{lineId}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateQuantityInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), sessionID(r), chi.URLParam(r, "lineId"), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/v1/cart/items/{lineId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveItem(r.Context(), sessionID(r), chi.URLParam(r, "lineId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, cart)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.ClearCart(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, cart)
}

// ToggleCart handles POST /api/v1/cart/toggle
func (h *CartHandler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.ToggleCart(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, cart)
}

// SetCartOpen handles PUT /api/v1/cart/open
func (h *CartHandler) SetCartOpen(w http.ResponseWriter, r *http.Request) {
	var req SetOpenRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.SetCartOpen(r.Context(), sessionID(r), *req.Open)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, cart)
}
