package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Aimecol/hforher/internal/service"
	"github.com/Aimecol/hforher/pkg/httputil"
	"github.com/Aimecol/hforher/pkg/validator"
)

// WishlistHandler handles HTTP requests for wishlist endpoints.
type WishlistHandler struct {
	service *service.WishlistService
	logger  *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(svc *service.WishlistService, l *slog.Logger) *WishlistHandler {
	return &WishlistHandler{service: svc, logger: l}
}

// GetWishlist handles GET /api/v1/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	wl, err := h.service.GetWishlist(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, wl)
}

// AddItem handles POST /api/v1/wishlist/items
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.WishlistItemInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	wl, err := h.service.AddItem(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, wl)
}

// RemoveItem handles DELETE /api/v1/wishlist/items/{productId}
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	wl, err := h.service.RemoveItem(r.Context(), sessionID(r), chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, wl)
}

// ToggleItem handles POST /api/v1/wishlist/items/{productId}/toggle
func (h *WishlistHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	wl, err := h.service.ToggleItem(r.Context(), sessionID(r), chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, wl)
}

// ClearWishlist handles DELETE /api/v1/wishlist
func (h *WishlistHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	wl, err := h.service.ClearWishlist(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, wl)
}
