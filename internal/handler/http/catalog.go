package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Aimecol/hforher/internal/service"
	"github.com/Aimecol/hforher/pkg/httputil"
	"github.com/Aimecol/hforher/pkg/pagination"
)

// CatalogHandler handles HTTP requests for products, categories and search.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, l *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: l}
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, sort, err := parseListing(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	res := h.service.ListProducts(r.Context(), f, sort, pagination.FromRequest(r))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// Featured handles GET /api/v1/products/featured
func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.Featured(r.Context(), limitParam(r))})
}

// Trending handles GET /api/v1/products/trending
func (h *CatalogHandler) Trending(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.Trending(r.Context(), limitParam(r))})
}

// NewArrivals handles GET /api/v1/products/new
func (h *CatalogHandler) NewArrivals(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.NewArrivals(r.Context(), limitParam(r))})
}

// GetProduct handles GET /api/v1/products/{slug}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// Recommendations handles GET /api/v1/products/{slug}/recommendations
func (h *CatalogHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	ps, err := h.service.Recommendations(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ps})
}

// Search handles GET /api/v1/search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	res := h.service.Search(r.Context(), r.URL.Query().Get("q"), pagination.FromRequest(r))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// Categories handles GET /api/v1/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.Categories(r.Context())})
}

// GetCategory handles GET /api/v1/categories/{slug}
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cat})
}

// CategoryProducts handles GET /api/v1/categories/{slug}/products
func (h *CatalogHandler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	f, sort, err := parseListing(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	page, err := h.service.CategoryProducts(r.Context(), chi.URLParam(r, "slug"), f, sort, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}
