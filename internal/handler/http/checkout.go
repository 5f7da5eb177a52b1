package http

import (
	"log/slog"
	"net/http"

	"github.com/Aimecol/hforher/internal/service"
	"github.com/Aimecol/hforher/pkg/httputil"
	"github.com/Aimecol/hforher/pkg/validator"
)

// CheckoutHandler handles HTTP requests for checkout endpoints.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, l *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: l}
}

// Quote handles POST /api/v1/checkout/quote
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req service.QuoteInput
	if r.ContentLength != 0 {
		if err := validator.DecodeAndValidate(r, &req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	}

	q, err := h.service.Quote(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, q)
}

// PlaceOrder handles POST /api/v1/checkout/orders
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceOrderInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusCreated, order)
}
