package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/eyewear_shop/internal/metrics"
	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/payment"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/internal/service"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
	middleware "github.com/Skotchmaster/eyewear_shop/pkg/middleware/auth"
	"github.com/Skotchmaster/eyewear_shop/pkg/tokens"
)

var jwtSecret = []byte("handler-test-secret")

const csrfToken = "test-csrf-token"

type stubCharger struct{ err error }

func (s *stubCharger) Charge(context.Context, payment.ChargeRequest) (*payment.Charge, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &payment.Charge{ID: "ch_handler", Paid: true}, nil
}

type testEnv struct {
	e       *echo.Echo
	repo    *repo.GormRepo
	charger *stubCharger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithAuth(t, "")
}

func newTestEnvWithAuth(t *testing.T, authURL string) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := &repo.GormRepo{DB: db}
	require.NoError(t, r.Migrate(context.Background()))

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	charger := &stubCharger{}

	orders := &service.OrderService{Repo: r}
	refunds := &service.RefundService{Repo: r, Metrics: m}
	cart := &service.CartService{Repo: r, Metrics: m}

	e := echo.New()
	e.Use(m.Middleware())
	require.NoError(t, Register(e, &Deps{
		Catalog:  &CatalogHTTP{Svc: &service.CatalogService{Repo: r}},
		Cart:     &CartHTTP{Svc: cart},
		Checkout: &CheckoutHTTP{Svc: &service.CheckoutService{Repo: r, Country: "India"}},
		Payment: &PaymentHTTP{Svc: &service.PaymentService{
			Repo:     r,
			PayPal:   &payment.PayPal{ReceiverEmail: "shop@example.com", Currency: "INR"},
			Stripe:   charger,
			Currency: "INR",
			Metrics:  m,
		}},
		Account:      &AccountHTTP{Profiles: &service.ProfileService{Repo: r}, Orders: orders, Refunds: refunds},
		Admin:        &AdminHTTP{Refunds: refunds, Orders: orders},
		DB:           r,
		Metrics:      m,
		JWTSecret:    jwtSecret,
		AuthProxyURL: authURL,
	}))

	return &testEnv{e: e, repo: r, charger: charger}
}

type caller struct {
	id   uuid.UUID
	role string
}

func shopper() *caller { return &caller{id: uuid.New(), role: "user"} }

func admin() *caller { return &caller{id: uuid.New(), role: tokens.RoleAdmin} }

// do sends a JSON request through the whole router with a valid CSRF pair.
func (env *testEnv) do(t *testing.T, method, path string, body any, who *caller) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("X-CSRF-Token", csrfToken)
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: csrfToken})

	if who != nil {
		tok, err := tokens.SignAccess(who.id.String(), who.role, time.Now().Add(time.Hour), jwtSecret)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: middleware.AccessCookie, Value: tok})
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["message"]
}

func (env *testEnv) createItem(t *testing.T, slug, price string) {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/v1/admin/items", map[string]any{
		"title": slug, "slug": slug, "price": price,
	}, admin())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", nil, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", nil, nil).Code)

	env.do(t, http.MethodGet, "/api/v1/items", nil, nil)
	rec := env.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_http_request_duration_seconds")
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/admin/items", map[string]any{"title": "x", "slug": "x", "price": "1"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/items", map[string]any{"title": "x", "slug": "x", "price": "1"}, shopper())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.createItem(t, "aviator", "2500")
	env.createItem(t, "wayfarer", "1800")

	rec = env.do(t, http.MethodPost, "/api/v1/admin/items", map[string]any{"title": "dup", "slug": "aviator", "price": "10"}, admin())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/items?page=1&size=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[transport.Page[models.Item]](t, rec)
	assert.Len(t, page.Data, 1)
	assert.EqualValues(t, 2, page.Meta.Total)
	assert.True(t, page.Meta.HasNext)

	rec = env.do(t, http.MethodGet, "/api/v1/items/search?q=WAY", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[transport.Page[models.Item]](t, rec)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "wayfarer", page.Data[0].Slug)

	rec = env.do(t, http.MethodGet, "/api/v1/items/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "This product does not exist", errorMessage(t, rec))

	rec = env.do(t, http.MethodPatch, "/api/v1/admin/items/aviator", map[string]any{"price": "2700"}, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2700", decode[models.Item](t, rec).Price.String())

	rec = env.do(t, http.MethodDelete, "/api/v1/admin/items/wayfarer", nil, admin())
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRF(t *testing.T) {
	env := newTestEnv(t)
	env.createItem(t, "aviator", "2500")
	user := shopper()

	tok, err := tokens.SignAccess(user.id.String(), user.role, time.Now().Add(time.Hour), jwtSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items/aviator", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessCookie, Value: tok})
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payment/done", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessCookie, Value: tok})
	rec = httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, "payment return hook skips CSRF and reaches the handler")
}

func TestShoppingFlow(t *testing.T) {
	env := newTestEnv(t)
	env.createItem(t, "aviator", "2500")
	user := shopper()

	rec := env.do(t, http.MethodGet, "/api/v1/cart", nil, user)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/cart/items/aviator", nil, user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, service.MsgItemAdded, decode[transport.CartResponse](t, rec).Message)

	rec = env.do(t, http.MethodPost, "/api/v1/cart/items/aviator", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[transport.CartResponse](t, rec)
	assert.Equal(t, service.MsgItemUpdated, cart.Message)
	assert.Equal(t, "5000.00", cart.Order.Total.StringFixed(2))

	rec = env.do(t, http.MethodPost, "/api/v1/cart/items/aviator/lenses", transport.LensesRequest{PowerType: "-1.0", LensesType: "blue-cut"}, user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/admin/coupons", map[string]any{"code": "SAVE500", "amount": "500"}, admin())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/cart/coupon", transport.CouponRequest{Code: "SAVE500"}, user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4500.00", decode[transport.CartResponse](t, rec).Order.Total.StringFixed(2))

	rec = env.do(t, http.MethodPost, "/api/v1/checkout", transport.CheckoutRequest{PaymentMethod: "X"}, user)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Failed to Checkout", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/checkout", transport.CheckoutRequest{
		ShippingStreetAddress: "12 MG Road",
		ShippingZipCode:       "560001",
		SameBillingAddress:    true,
		PaymentMethod:         "S",
	}, user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	co := decode[transport.CheckoutResponse](t, rec)
	assert.Equal(t, models.ProviderStripe, co.Next)
	assert.Equal(t, "/api/v1/payment/stripe", co.NextURL)

	rec = env.do(t, http.MethodGet, "/api/v1/payment/paypal", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":"4500.00"`)

	env.charger.err = fmt.Errorf("card: %w", payment.ErrDeclined)
	rec = env.do(t, http.MethodPost, "/api/v1/payment/stripe", transport.StripeChargeRequest{Token: "tok_chargeDeclined"}, user)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "Your card has been declined.", errorMessage(t, rec))

	env.charger.err = nil
	rec = env.do(t, http.MethodPost, "/api/v1/payment/stripe", transport.StripeChargeRequest{Token: "tok_visa"}, user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[transport.CartResponse](t, rec)
	assert.Equal(t, service.MsgOrderDone, paid.Message)
	require.NotNil(t, paid.Order.RefCode)
	ref := *paid.Order.RefCode

	rec = env.do(t, http.MethodGet, "/api/v1/orders", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[transport.Page[transport.OrderView]](t, rec).Data, 1)

	rec = env.do(t, http.MethodGet, "/api/v1/orders/"+ref, nil, shopper())
	assert.Equal(t, http.StatusNotFound, rec.Code, "other users cannot see the order")

	rec = env.do(t, http.MethodGet, "/api/v1/profile", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[transport.ProfileResponse](t, rec).Orders, 1)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/orders/"+ref+"/ship", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/admin/orders/"+ref+"/receive", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[transport.OrderView](t, rec).Received)

	refund := transport.RefundRequest{RefCode: ref, Email: "buyer@example.com", Message: "Wrong size"}
	rec = env.do(t, http.MethodPost, "/api/v1/refunds", refund, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, service.MsgRefundRequested, decode[transport.MessageResponse](t, rec).Message)

	rec = env.do(t, http.MethodPost, "/api/v1/refunds", refund, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/refunds?pending=true", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	refunds := decode[transport.Page[models.Refund]](t, rec)
	require.Len(t, refunds.Data, 1)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/refunds/%d/grant", refunds.Data[0].ID), nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/refunds/%d/grant", refunds.Data[0].ID), nil, admin())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/payment/cancelled", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.MsgOrderCancelled, decode[transport.MessageResponse](t, rec).Message)
}

func TestAuthProxy(t *testing.T) {
	var gotPath, gotHost string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHost = r.Header.Get("X-Forwarded-Host")
		http.SetCookie(w, &http.Cookie{Name: middleware.AccessCookie, Value: "issued"})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	env := newTestEnvWithAuth(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"username":"meera"}`))
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "auth routes bypass CSRF")
	assert.Equal(t, "/auth/login", gotPath)
	assert.Equal(t, "example.com", gotHost)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "accessToken=issued")
}
