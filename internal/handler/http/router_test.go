package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aimecol/hforher/internal/catalog"
	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/event"
	"github.com/Aimecol/hforher/internal/notify"
	"github.com/Aimecol/hforher/internal/repository/memory"
	"github.com/Aimecol/hforher/internal/service"
	"github.com/Aimecol/hforher/internal/session"
	"github.com/Aimecol/hforher/pkg/health"
	"github.com/Aimecol/hforher/pkg/middleware"
)

// ============================================================================
// Test helpers
// ============================================================================

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Notifications []domain.Notification `json:"notifications"`
}

type testServer struct {
	handler http.Handler
	repo    *memory.Store
}

func newTestServer(t *testing.T, opts ...func(*RouterConfig)) *testServer {
	t.Helper()
	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	cat, err := catalog.Load(context.Background(), catalog.EmbeddedSource{})
	require.NoError(t, err)

	repo := memory.New()
	dispatcher := notify.NewDispatcher(l, nil)
	registry := session.NewRegistry(session.Config{}, repo, repo, dispatcher, l)
	pub := event.NopPublisher{}

	cfg := RouterConfig{
		Cart:     service.NewCartService(registry, cat, pub, l),
		Wishlist: service.NewWishlistService(registry, cat, pub, l),
		Catalog:  service.NewCatalogService(cat, catalog.NewSearcher(0), l),
		Checkout: service.NewCheckoutService(registry, cat, pub, l),
		Health:   health.NewHandler("test"),
		Logger:   l,
		CORS:     middleware.DefaultCORSConfig(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &testServer{handler: NewRouter(cfg), repo: repo}
}

func (s *testServer) do(t *testing.T, method, path, sessionID string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// ============================================================================
// Session handling
// ============================================================================

func TestSession_MissingHeaderGetsFreshID(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/cart", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(middleware.SessionHeader)
	assert.True(t, session.ValidID(id))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	cart := decode[service.CartView](t, env.Data)
	assert.Equal(t, id, cart.SessionID)
	assert.Empty(t, cart.Items)
}

func TestSession_InvalidHeaderRejected(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/cart", "bad id!", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

// ============================================================================
// Cart
// ============================================================================

func TestCart_AddUpdateRemoveFlow(t *testing.T) {
	s := newTestServer(t)
	add := map[string]any{"product_id": "prod-001", "variant_id": "prod-001-v1", "quantity": 1}

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/items", "sess-1", add)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.Notifications, 1)
	assert.Equal(t, "Added to Cart", env.Notifications[0].Title)
	assert.Equal(t, "Silk Wrap Dress has been added to your cart", env.Notifications[0].Description)

	rec, env = s.do(t, http.MethodPost, "/api/v1/cart/items", "sess-1", add)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.Notifications, 1)
	assert.Equal(t, "Cart Updated", env.Notifications[0].Title)

	cart := decode[service.CartView](t, env.Data)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, int64(90000), cart.Totals.Subtotal)
	assert.Equal(t, int64(0), cart.Totals.Shipping)
	assert.Equal(t, int64(16200), cart.Totals.Tax)
	assert.Equal(t, int64(106200), cart.Totals.Total)

	lineID := cart.Items[0].ID
	rec, env = s.do(t, http.MethodPut, "/api/v1/cart/items/"+lineID, "sess-1", map[string]any{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.Notifications, 1)
	assert.Equal(t, "Item Removed", env.Notifications[0].Title)
	assert.Empty(t, decode[service.CartView](t, env.Data).Items)

	stored, err := s.repo.LoadCart(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCart_AddValidation(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/items", "sess-1", map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "product_id")

	rec, env = s.do(t, http.MethodPost, "/api/v1/cart/items", "sess-1",
		map[string]any{"product_id": "prod-999", "variant_id": "v1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/cart/items", "sess-1",
		map[string]any{"product_id": "prod-001", "variant_id": "prod-001-v3"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_ClearAndPanel(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", "sess-1", map[string]any{"product_id": "prod-017", "variant_id": "prod-017-v1"})

	rec, env := s.do(t, http.MethodDelete, "/api/v1/cart", "sess-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.Notifications, 1)
	assert.Equal(t, "Cart Cleared", env.Notifications[0].Title)

	_, env = s.do(t, http.MethodPost, "/api/v1/cart/toggle", "sess-1", nil)
	assert.True(t, decode[service.CartView](t, env.Data).IsOpen)

	_, env = s.do(t, http.MethodPut, "/api/v1/cart/open", "sess-1", map[string]any{"open": false})
	assert.False(t, decode[service.CartView](t, env.Data).IsOpen)

	rec, _ = s.do(t, http.MethodPut, "/api/v1/cart/open", "sess-1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_SessionsAreIsolated(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", "alice", map[string]any{"product_id": "prod-017", "variant_id": "prod-017-v1"})

	_, env := s.do(t, http.MethodGet, "/api/v1/cart", "bob", nil)

	assert.Empty(t, decode[service.CartView](t, env.Data).Items)
}

func TestContentTypeJSON_RejectsOtherTypes(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader("product_id=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// ============================================================================
// Wishlist
// ============================================================================

func TestWishlist_ToggleFlow(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/wishlist/items/prod-002/toggle", "sess-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	wl := decode[service.WishlistView](t, env.Data)
	require.NotNil(t, wl.Saved)
	assert.True(t, *wl.Saved)
	assert.Equal(t, "Ankara Print Maxi Dress has been added to your wishlist", env.Notifications[0].Description)

	_, env = s.do(t, http.MethodPost, "/api/v1/wishlist/items/prod-002/toggle", "sess-1", nil)
	wl = decode[service.WishlistView](t, env.Data)
	assert.False(t, *wl.Saved)
	assert.Zero(t, wl.TotalItems)
	assert.Equal(t, "Removed from Wishlist", env.Notifications[0].Title)
}

func TestWishlist_AddRemoveClear(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/wishlist/items", "sess-1", map[string]any{"product_id": "prod-015"})
	require.Equal(t, http.StatusOK, rec.Code)
	_, env := s.do(t, http.MethodPost, "/api/v1/wishlist/items", "sess-1", map[string]any{"product_id": "prod-015"})
	assert.Empty(t, env.Notifications)

	_, env = s.do(t, http.MethodGet, "/api/v1/wishlist", "sess-1", nil)
	wl := decode[service.WishlistView](t, env.Data)
	assert.Equal(t, []string{"prod-015"}, wl.Items)
	require.Len(t, wl.Products, 1)

	_, env = s.do(t, http.MethodDelete, "/api/v1/wishlist/items/prod-015", "sess-1", nil)
	assert.Zero(t, decode[service.WishlistView](t, env.Data).TotalItems)

	_, env = s.do(t, http.MethodDelete, "/api/v1/wishlist", "sess-1", nil)
	assert.Equal(t, "Wishlist Cleared", env.Notifications[0].Title)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/wishlist/items/ghost/toggle", "sess-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Catalog
// ============================================================================

type productPage struct {
	Data       []domain.Product `json:"data"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
	HasNext    bool             `json:"has_next"`
	HasPrev    bool             `json:"has_prev"`
}

func TestProducts_ListAndPaginate(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/products?limit=5&page=4", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[productPage](t, env.Data)
	assert.Equal(t, 18, page.Total)
	assert.Equal(t, 4, page.TotalPages)
	assert.Len(t, page.Data, 3)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestProducts_PageFarPastEnd(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/v1/products?page=768614336404564652",
		"/api/v1/search?q=dress&page=768614336404564652",
		"/api/v1/categories/dresses/products?page=768614336404564652",
	} {
		rec, env := s.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var page struct {
			Data    []json.RawMessage `json:"data"`
			HasNext bool              `json:"has_next"`
			HasPrev bool              `json:"has_prev"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &page), path)
		assert.Empty(t, page.Data, path)
		assert.False(t, page.HasNext, path)
		assert.True(t, page.HasPrev, path)
	}
}

func TestProducts_LimitCapped(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodGet, "/api/v1/products?limit=1000", "", nil)

	var page struct {
		Limit int `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 100, page.Limit)
}

func TestProducts_Filters(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodGet, "/api/v1/products?category=shoes&isInStock=true", "", nil)
	page := decode[productPage](t, env.Data)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "prod-013", page.Data[0].ID)

	_, env = s.do(t, http.MethodGet, "/api/v1/products?minPrice=30000&maxPrice=32000&sortBy=price&sortOrder=asc", "", nil)
	page = decode[productPage](t, env.Data)
	ids := make([]string, len(page.Data))
	for i, p := range page.Data {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"prod-014", "prod-002", "prod-003"}, ids)

	_, env = s.do(t, http.MethodGet, "/api/v1/products?brands=Umutako%20Shoes,Atelier%20Nyanza", "", nil)
	assert.Equal(t, 4, decode[productPage](t, env.Data).Total)
}

func TestProducts_BadParams(t *testing.T) {
	s := newTestServer(t)

	for _, q := range []string{"minPrice=abc", "maxPrice=-1", "rating=9", "sortBy=colour", "sortOrder=sideways"} {
		rec, env := s.do(t, http.MethodGet, "/api/v1/products?"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		require.NotNil(t, env.Error, q)
	}
}

func TestProducts_DetailAndRecommendations(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/products/crepe-blouse", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prod-005", decode[domain.Product](t, env.Data).ID)

	_, env = s.do(t, http.MethodGet, "/api/v1/products/silk-wrap-dress/recommendations", "", nil)
	recs := decode[[]domain.Product](t, env.Data)
	assert.Len(t, recs, 4)
	for _, p := range recs {
		assert.Equal(t, "cat-dresses", p.CategoryID)
		assert.NotEqual(t, "prod-001", p.ID)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/products/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts_Collections(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodGet, "/api/v1/products/new?limit=2", "", nil)
	fresh := decode[[]domain.Product](t, env.Data)
	require.Len(t, fresh, 2)
	assert.Equal(t, "prod-018", fresh[0].ID)

	_, env = s.do(t, http.MethodGet, "/api/v1/products/featured", "", nil)
	for _, p := range decode[[]domain.Product](t, env.Data) {
		assert.True(t, p.IsFeatured)
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/products/trending", "", nil)
	for _, p := range decode[[]domain.Product](t, env.Data) {
		assert.True(t, p.IsTrending)
	}
}

func TestSearch(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/search?q=trench", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Query string        `json:"query"`
		Data  []catalog.Hit `json:"data"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "trench", res.Query)
	require.NotEmpty(t, res.Data)
	assert.Equal(t, "prod-012", res.Data[0].Product.ID)

	_, env = s.do(t, http.MethodGet, "/api/v1/search", "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Zero(t, res.Total)
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodGet, "/api/v1/categories", "", nil)
	cats := decode[[]domain.Category](t, env.Data)
	require.Len(t, cats, 6)
	assert.Equal(t, "dresses", cats[0].Slug)
	assert.Equal(t, 5, cats[0].ProductCount)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/categories/archive", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/categories/dresses/products?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Category domain.Category  `json:"category"`
		Data     []domain.Product `json:"data"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, "cat-dresses", page.Category.ID)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Data, 2)
}

// ============================================================================
// Checkout
// ============================================================================

func orderBody() map[string]any {
	return map[string]any{
		"contact": map[string]any{"email": "amina@example.com", "phone": "+250788123456"},
		"shipping_address": map[string]any{
			"first_name": "Amina", "last_name": "Uwase", "address1": "KG 7 Ave",
			"city": "Kigali", "province": "Kigali", "country": "RW",
		},
		"payment_method": map[string]any{"type": "card", "provider": "stripe", "last4": "4242"},
		"coupon_code":    "WELCOME10",
	}
}

func TestCheckout_QuoteAndOrder(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", "sess-1", map[string]any{"product_id": "prod-002", "variant_id": "prod-002-v1"})

	rec, env := s.do(t, http.MethodPost, "/api/v1/checkout/quote", "sess-1", map[string]any{"coupon_code": "welcome10"})
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[service.Quote](t, env.Data)
	assert.Equal(t, int64(32000), q.Totals.Subtotal)
	assert.Equal(t, int64(3200), q.Totals.Discount)
	assert.Equal(t, int64(2000), q.Totals.Shipping)
	assert.Equal(t, int64(5760), q.Totals.Tax)
	assert.Equal(t, int64(36560), q.Totals.Total)

	rec, env = s.do(t, http.MethodPost, "/api/v1/checkout/orders", "sess-1", orderBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[domain.Order](t, env.Data)
	assert.Regexp(t, `^HFH-\d{8}-[0-9A-F]{6}$`, order.OrderNumber)
	assert.Equal(t, int64(36560), order.Total)
	require.Len(t, env.Notifications, 1)
	assert.Equal(t, "Cart Cleared", env.Notifications[0].Title)

	rec, env = s.do(t, http.MethodPost, "/api/v1/checkout/orders", "sess-1", orderBody())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "EMPTY_CART", env.Error.Code)
}

func TestCheckout_QuoteWithoutBody(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/checkout/quote", "sess-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2000), decode[service.Quote](t, env.Data).Totals.Total)
}

func TestCheckout_OrderValidation(t *testing.T) {
	s := newTestServer(t)
	body := orderBody()
	body["contact"] = map[string]any{"email": "nope"}

	rec, env := s.do(t, http.MethodPost, "/api/v1/checkout/orders", "sess-1", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "email")
}

func TestCheckout_OrdersAreRateLimited(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := newTestServer(t, func(c *RouterConfig) {
		c.OrderLimiter = middleware.NewRateLimiter(0.001, 1, l)
	})

	rec, _ := s.do(t, http.MethodPost, "/api/v1/checkout/orders", "sess-1", orderBody())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/api/v1/checkout/orders", "sess-1", orderBody())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)
}

// ============================================================================
// Operational endpoints
// ============================================================================

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	s.handler.ServeHTTP(mrec, req)
	assert.Equal(t, http.StatusOK, mrec.Code)
	assert.Contains(t, mrec.Body.String(), "storefront_")
}
