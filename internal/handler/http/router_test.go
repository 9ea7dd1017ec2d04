package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pwerioflow/link/internal/auth"
	"github.com/pwerioflow/link/internal/cart"
	"github.com/pwerioflow/link/internal/checkout"
	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/event"
	"github.com/pwerioflow/link/internal/export"
	"github.com/pwerioflow/link/internal/provider"
	providermock "github.com/pwerioflow/link/internal/provider/mock"
	"github.com/pwerioflow/link/internal/repository"
	"github.com/pwerioflow/link/internal/service"
	"github.com/pwerioflow/link/internal/storage/memory"
	apperrors "github.com/pwerioflow/link/pkg/errors"
	"github.com/pwerioflow/link/pkg/health"
	"github.com/pwerioflow/link/pkg/httpclient"
	"github.com/pwerioflow/link/pkg/httputil"
	"github.com/pwerioflow/link/pkg/pagination"
)

// ============================================================================
// Test environment
// ============================================================================

type testEnv struct {
	profiles *mockProfileRepository
	settings *mockSettingsRepository
	links    *mockLinkRepository
	products *mockProductRepository
	subs     *mockSubscriptionRepository
	qr       *mockQRRepository
	orders   *mockOrderRepository
	provider *providermock.Provider
	tokens   *auth.JWTManager
	router   http.Handler
	server   *httptest.Server
}

// newTestEnv wires the production router over mocked repositories. The
// router is also served on a real listener so cart checkout can post to
// its own checkout endpoint.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithOptions(t, Options{RateLimitRPS: 1000, RateBurst: 1000, StorefrontMaxAge: 60})
}

func newTestEnvWithOptions(t *testing.T, opts Options) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := &testEnv{
		profiles: new(mockProfileRepository),
		settings: new(mockSettingsRepository),
		links:    new(mockLinkRepository),
		products: new(mockProductRepository),
		subs:     new(mockSubscriptionRepository),
		qr:       new(mockQRRepository),
		orders:   new(mockOrderRepository),
		provider: providermock.NewProvider("https://pay.example", "whsec_test"),
		tokens:   auth.NewJWTManager("test-secret", time.Hour),
	}

	var handler http.Handler
	e.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(e.server.Close)

	const site = "https://linkbio.example"
	sessions := cart.NewSessions(time.Hour)
	producer := event.NewProducer(nil, logger)
	client := httpclient.New(httpclient.Config{Timeout: 5 * time.Second})
	initiator := checkout.NewInitiator(client, e.server.URL+"/api/v1/checkout", logger)

	files := memory.New(site)
	storefronts := service.NewStorefrontService(e.profiles, e.settings, e.links, e.products, e.qr, nil, sessions, producer, logger)
	svcs := Services{
		Storefronts:   storefronts,
		Carts:         service.NewCartService(sessions, e.products, e.profiles, initiator, logger),
		Checkout:      service.NewCheckoutService(e.profiles, e.subs, e.products, e.provider, nil, producer, site, logger),
		Auth:          service.NewAuthService(e.profiles, e.tokens, bcrypt.MinCost, 7, logger),
		Admin:         service.NewAdminService(e.profiles, e.settings, e.links, e.products, e.qr, e.subs, storefronts, logger),
		Media:         service.NewMediaService(files, 1<<20, logger),
		QR:            service.NewQRService(e.profiles, e.qr, site, logger),
		Orders:        service.NewOrderService(e.orders, e.profiles),
		Connect:       service.NewConnectService(e.profiles, e.provider, site, logger),
		Subscriptions: service.NewSubscriptionService(e.subs, e.profiles, e.provider, site, 0, logger),
		Webhooks:      service.NewWebhookService(e.provider, e.subs, e.profiles, e.orders, producer, logger),
	}

	handler = NewRouter(ctx, svcs, files, e.tokens.Validator(), health.NewHandler("test", time.Second),
		opts, logger)
	e.router = handler
	return e
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	token, _, err := e.tokens.GenerateToken("seller-1", "acme")
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// doFrom is do for a shopper behind a proxy that reports ip.
func (e *testEnv) doFrom(t *testing.T, ip, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Forwarded-For", ip)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// expectStorefront stubs everything a visit to /acme reads.
func (e *testEnv) expectStorefront() {
	e.profiles.On("GetByUsername", mock.Anything, "acme").Return(payableSeller(), nil)
	e.settings.On("Get", mock.Anything, "seller-1").Return(domain.Settings{}, nil)
	e.links.On("List", mock.Anything, "seller-1", true).Return([]domain.Link{}, nil)
	e.products.On("List", mock.Anything, "seller-1", true).Return(catalog(), nil)
}

func payableSeller() *domain.Profile {
	return &domain.Profile{
		ID:           "seller-1",
		Username:     "acme",
		BusinessName: "Acme Café",
		Payments:     domain.Payments{AccountID: "acct_1", ChargesEnabled: true},
	}
}

func catalog() []domain.Product {
	return []domain.Product{
		{ID: "p1", SellerID: "seller-1", Name: "Mug", Price: decimal.RequireFromString("19.90"), IsActive: true},
		{ID: "p2", SellerID: "seller-1", Name: "Shirt", Price: decimal.RequireFromString("59.99"), IsActive: true},
	}
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// ============================================================================
// Infrastructure routes
// ============================================================================

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestContentTypeJSON_RejectsForms(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// ============================================================================
// Storefront and cart
// ============================================================================

func TestGetStorefront(t *testing.T) {
	e := newTestEnv(t)
	e.expectStorefront()

	rec := e.do(t, http.MethodGet, "/api/v1/storefront/acme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	page := decodeJSON[service.Page](t, rec)
	assert.Equal(t, "Acme Café", page.Profile.BusinessName)
	assert.Equal(t, domain.DefaultButtonColor, page.Theme.ButtonColor)
	assert.Len(t, page.Products, 2)
	assert.NotEmpty(t, page.CartID)
	assert.Nil(t, page.CartButton)
}

func TestGetStorefront_NotFound(t *testing.T) {
	e := newTestEnv(t)
	e.profiles.On("GetByUsername", mock.Anything, "ghost").Return(nil, apperrors.ErrNotFound)

	rec := e.do(t, http.MethodGet, "/api/v1/storefront/ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeJSON[httputil.ErrorBody](t, rec).Code)
}

func TestCart_AddUpdateAndCheckout(t *testing.T) {
	e := newTestEnv(t)
	e.expectStorefront()
	e.products.On("GetByID", mock.Anything, "seller-1", "p1").Return(&catalog()[0], nil)
	e.profiles.On("GetByID", mock.Anything, "seller-1").Return(payableSeller(), nil)
	e.subs.On("GetByProfile", mock.Anything, "seller-1").
		Return(&domain.Subscription{ProfileID: "seller-1", Status: domain.SubscriptionActive}, nil)
	e.products.On("GetActiveByIDs", mock.Anything, "seller-1", []string{"p1"}).Return(catalog()[:1], nil)

	page := decodeJSON[service.Page](t, e.do(t, http.MethodGet, "/api/v1/storefront/acme", nil, ""))
	cartPath := "/api/v1/carts/" + page.CartID

	rec := e.do(t, http.MethodPost, cartPath+"/items", AddItemRequest{ProductID: "p1"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	view := decodeJSON[service.CartView](t, rec)
	assert.Equal(t, 1, view.Drawer.TotalItems)
	require.NotNil(t, view.Button)
	assert.Equal(t, "1", view.Button.Badge)

	rec = e.do(t, http.MethodPatch, cartPath+"/items/p1", map[string]string{"quantity": "3"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeJSON[service.CartView](t, rec).Drawer.TotalItems)

	rec = e.do(t, http.MethodPatch, cartPath+"/items/p1", map[string]int{"quantity": 2}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeJSON[service.CartView](t, rec).Drawer.TotalItems)

	rec = e.do(t, http.MethodPost, cartPath+"/checkout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	outcome := decodeJSON[checkout.Outcome](t, rec)
	assert.True(t, strings.HasPrefix(outcome.RedirectURL, "https://pay.example/pay/"), outcome.RedirectURL)
	assert.Empty(t, outcome.Alert)

	// Redirected carts are discarded.
	rec = e.do(t, http.MethodGet, cartPath, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCart_QuantityIsCapped(t *testing.T) {
	e := newTestEnv(t)
	e.expectStorefront()
	e.products.On("GetByID", mock.Anything, "seller-1", "p1").Return(&catalog()[0], nil)
	e.profiles.On("GetByID", mock.Anything, "seller-1").Return(payableSeller(), nil)
	e.subs.On("GetByProfile", mock.Anything, "seller-1").
		Return(&domain.Subscription{ProfileID: "seller-1", Status: domain.SubscriptionActive}, nil)
	e.products.On("GetActiveByIDs", mock.Anything, "seller-1", []string{"p1"}).Return(catalog()[:1], nil)

	page := decodeJSON[service.Page](t, e.do(t, http.MethodGet, "/api/v1/storefront/acme", nil, ""))
	cartPath := "/api/v1/carts/" + page.CartID
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, cartPath+"/items", AddItemRequest{ProductID: "p1"}, "").Code)

	rec := e.do(t, http.MethodPatch, cartPath+"/items/p1", map[string]string{"quantity": "9223372036854775807"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cart.MaxQuantity, decodeJSON[service.CartView](t, rec).Drawer.TotalItems)

	rec = e.do(t, http.MethodPost, cartPath+"/checkout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	outcome := decodeJSON[checkout.Outcome](t, rec)
	assert.True(t, strings.HasPrefix(outcome.RedirectURL, "https://pay.example/pay/"), "%+v", outcome)
}

func TestCart_CheckoutIsLimitedPerShopper(t *testing.T) {
	// A burst of three covers one page load, one add and one checkout.
	e := newTestEnvWithOptions(t, Options{RateLimitRPS: 0.001, RateBurst: 3, StorefrontMaxAge: 60})
	e.expectStorefront()
	e.products.On("GetByID", mock.Anything, "seller-1", "p1").Return(&catalog()[0], nil)
	e.profiles.On("GetByID", mock.Anything, "seller-1").Return(payableSeller(), nil)
	e.subs.On("GetByProfile", mock.Anything, "seller-1").
		Return(&domain.Subscription{ProfileID: "seller-1", Status: domain.SubscriptionActive}, nil)
	e.products.On("GetActiveByIDs", mock.Anything, "seller-1", []string{"p1"}).Return(catalog()[:1], nil)

	shoppers := []string{"198.51.100.1", "198.51.100.2", "198.51.100.3", "198.51.100.4"}
	for _, ip := range shoppers {
		rec := e.doFrom(t, ip, http.MethodGet, "/api/v1/storefront/acme", nil)
		require.Equal(t, http.StatusOK, rec.Code, ip)
		cartPath := "/api/v1/carts/" + decodeJSON[service.Page](t, rec).CartID

		rec = e.doFrom(t, ip, http.MethodPost, cartPath+"/items", AddItemRequest{ProductID: "p1"})
		require.Equal(t, http.StatusOK, rec.Code, ip)

		rec = e.doFrom(t, ip, http.MethodPost, cartPath+"/checkout", nil)
		require.Equal(t, http.StatusOK, rec.Code, ip)
		outcome := decodeJSON[checkout.Outcome](t, rec)
		assert.True(t, strings.HasPrefix(outcome.RedirectURL, "https://pay.example/pay/"), "%s: %+v", ip, outcome)
	}

	// Each shopper has spent its burst.
	rec := e.doFrom(t, shoppers[0], http.MethodGet, "/api/v1/storefront/acme", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCart_CheckoutRejectionKeepsCart(t *testing.T) {
	e := newTestEnv(t)
	e.expectStorefront()
	e.products.On("GetByID", mock.Anything, "seller-1", "p1").Return(&catalog()[0], nil)
	e.profiles.On("GetByID", mock.Anything, "seller-1").Return(payableSeller(), nil)
	e.subs.On("GetByProfile", mock.Anything, "seller-1").Return(nil, apperrors.ErrNotFound)

	page := decodeJSON[service.Page](t, e.do(t, http.MethodGet, "/api/v1/storefront/acme", nil, ""))
	cartPath := "/api/v1/carts/" + page.CartID
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, cartPath+"/items", AddItemRequest{ProductID: "p1"}, "").Code)

	rec := e.do(t, http.MethodPost, cartPath+"/checkout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	outcome := decodeJSON[checkout.Outcome](t, rec)
	assert.Equal(t, service.MsgSubscriptionNeeded, outcome.Alert)
	assert.True(t, outcome.ServerReported)

	rec = e.do(t, http.MethodGet, cartPath, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeJSON[service.CartView](t, rec).Drawer.TotalItems)
}

func TestCart_EmptyCheckoutAlerts(t *testing.T) {
	e := newTestEnv(t)
	e.expectStorefront()
	e.profiles.On("GetByID", mock.Anything, "seller-1").Return(payableSeller(), nil)

	page := decodeJSON[service.Page](t, e.do(t, http.MethodGet, "/api/v1/storefront/acme", nil, ""))

	rec := e.do(t, http.MethodPost, "/api/v1/carts/"+page.CartID+"/checkout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.MsgEmptyCart, decodeJSON[checkout.Outcome](t, rec).Alert)
}

func TestCart_UnknownCart(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/carts/nope/open", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Checkout endpoint
// ============================================================================

func TestCreateCheckoutSession_Errors(t *testing.T) {
	e := newTestEnv(t)
	e.profiles.On("GetByUsername", mock.Anything, "ghost").Return(nil, apperrors.ErrNotFound)

	tests := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"no items", map[string]any{"items": []any{}, "username": "acme"}, http.StatusBadRequest, service.MsgInvalidItems},
		{"unknown seller", service.CreateSessionInput{
			Username: "ghost",
			Items:    []service.CheckoutItem{{Product: service.CheckoutProductRef{ID: "p1"}, Quantity: 1}},
		}, http.StatusNotFound, service.MsgSellerNotFound},
		{"malformed", "not an object", http.StatusBadRequest, service.MsgInvalidItems},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/v1/checkout", tt.body, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeJSON[httputil.ErrorBody](t, rec).Error)
		})
	}
}

func TestCreateCheckoutSession_IdempotencyKeyReusesSession(t *testing.T) {
	e := newTestEnv(t)
	e.profiles.On("GetByUsername", mock.Anything, "acme").Return(payableSeller(), nil)
	e.subs.On("GetByProfile", mock.Anything, "seller-1").
		Return(&domain.Subscription{ProfileID: "seller-1", Status: domain.SubscriptionActive}, nil)
	e.products.On("GetActiveByIDs", mock.Anything, "seller-1", []string{"p1"}).Return(catalog()[:1], nil)

	body, err := json.Marshal(service.CreateSessionInput{
		Username: "acme",
		Items:    []service.CheckoutItem{{Product: service.CheckoutProductRef{ID: "p1"}, Quantity: 2}},
	})
	require.NoError(t, err)

	post := func() string {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(checkout.IdempotencyHeader, "cart-1:2")
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decodeJSON[CheckoutResponse](t, rec).URL
	}

	first := post()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, post())
}

// ============================================================================
// Auth and admin
// ============================================================================

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	var stored *domain.Profile
	e.profiles.On("Register", mock.Anything, mock.AnythingOfType("repository.Registration")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(repository.Registration).Profile }).
		Return(nil)

	rec := e.do(t, http.MethodPost, "/api/v1/auth/register", service.RegisterInput{
		Email:        "Owner@Acme.example",
		Password:     "correct horse",
		BusinessName: "Acme Café",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decodeJSON[service.AuthResult](t, rec)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "acme-cafe", result.Profile.Username)

	e.profiles.On("GetByEmail", mock.Anything, "owner@acme.example").Return(stored, nil)

	rec = e.do(t, http.MethodPost, "/api/v1/auth/login", service.LoginInput{Email: "owner@acme.example", Password: "wrong password"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/auth/login", service.LoginInput{Email: "owner@acme.example", Password: "correct horse"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister_ValidationError(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeJSON[httputil.ErrorBody](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Fields, "password")
}

func TestAdmin_RequiresToken(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/v1/admin/dashboard", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/admin/dashboard", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmin_Dashboard(t *testing.T) {
	e := newTestEnv(t)
	e.profiles.On("GetByID", mock.Anything, "seller-1").Return(payableSeller(), nil)
	e.settings.On("Get", mock.Anything, "seller-1").Return(domain.Settings{}, nil)
	e.links.On("List", mock.Anything, "seller-1", false).Return([]domain.Link{}, nil)
	e.products.On("List", mock.Anything, "seller-1", false).Return(catalog(), nil)
	e.qr.On("Get", mock.Anything, "seller-1").Return(domain.QRMetrics{ScanCount: 4}, nil)
	e.subs.On("GetByProfile", mock.Anything, "seller-1").Return(nil, apperrors.ErrNotFound)

	rec := e.do(t, http.MethodGet, "/api/v1/admin/dashboard", nil, e.token(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	dash := decodeJSON[service.Dashboard](t, rec)
	assert.Equal(t, "acme", dash.Profile.Username)
	assert.Equal(t, int64(4), dash.QR.ScanCount)
	assert.False(t, dash.Access.HasAccess)
}

func TestAdmin_LinkValidationAndIDs(t *testing.T) {
	e := newTestEnv(t)
	token := e.token(t)

	rec := e.do(t, http.MethodPost, "/api/v1/admin/links", map[string]string{"title": "Shop"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeJSON[httputil.ErrorBody](t, rec).Code)

	rec = e.do(t, http.MethodDelete, "/api/v1/admin/links/not-a-uuid", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decodeJSON[httputil.ErrorBody](t, rec).Code)
}

func TestAdmin_DeleteProduct(t *testing.T) {
	e := newTestEnv(t)
	const id = "4b3a2c1d-0000-4000-8000-000000000001"
	e.products.On("Delete", mock.Anything, "seller-1", id).Return(nil)
	e.profiles.On("GetByID", mock.Anything, "seller-1").Return(payableSeller(), nil)

	rec := e.do(t, http.MethodDelete, "/api/v1/admin/products/"+id, nil, e.token(t))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	e.products.AssertExpectations(t)
}

func TestAdmin_UploadAndServeMedia(t *testing.T) {
	e := newTestEnv(t)
	png := []byte("\x89PNG\r\n\x1a\nfake")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="logo.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads?bucket=logos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token(t))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	uploaded := decodeJSON[UploadResponse](t, rec)
	assert.True(t, strings.HasPrefix(uploaded.Key, "logos/seller-1/"))
	assert.True(t, strings.HasSuffix(uploaded.URL, ".png"))

	rec = e.do(t, http.MethodGet, "/media/"+uploaded.Key, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestAdmin_UploadRejectsBucket(t *testing.T) {
	e := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "x.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("data"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads?bucket=secrets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token(t))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_QRCode(t *testing.T) {
	e := newTestEnv(t)
	e.profiles.On("GetByID", mock.Anything, "seller-1").Return(payableSeller(), nil)
	e.qr.On("Reset", mock.Anything, "seller-1").Return(nil)

	rec := e.do(t, http.MethodGet, "/api/v1/admin/qr.png?size=200", nil, e.token(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = e.do(t, http.MethodPost, "/api/v1/admin/qr/reset", nil, e.token(t))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdmin_Orders(t *testing.T) {
	e := newTestEnv(t)
	order := domain.Order{ID: "o1", ProviderSessionID: "cs_1", AmountTotalCents: 3980, Currency: "brl", Status: domain.OrderPaid}
	e.orders.On("List", mock.Anything, "seller-1", pagination.Params{Page: 2, PerPage: 10}).
		Return([]domain.Order{order}, 11, nil)
	e.orders.On("ListAll", mock.Anything, "seller-1").Return([]domain.Order{order}, nil)
	e.profiles.On("GetByID", mock.Anything, "seller-1").Return(payableSeller(), nil)

	rec := e.do(t, http.MethodGet, "/api/v1/admin/orders?page=2&per_page=10", nil, e.token(t))
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeJSON[pagination.Result[domain.Order]](t, rec)
	assert.Equal(t, 11, result.TotalCount)
	assert.Equal(t, 2, result.TotalPages)
	assert.False(t, result.HasNext)

	rec = e.do(t, http.MethodGet, "/api/v1/admin/orders/export", nil, e.token(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "orders-acme.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestAdmin_PaymentsAndSubscription(t *testing.T) {
	e := newTestEnv(t)
	seller := payableSeller()
	seller.Payments = domain.Payments{}
	e.profiles.On("GetByID", mock.Anything, "seller-1").Return(seller, nil)
	e.profiles.On("SetPaymentAccount", mock.Anything, "seller-1", mock.AnythingOfType("domain.Payments")).Return(nil)
	e.subs.On("GetByProfile", mock.Anything, "seller-1").Return(nil, apperrors.ErrNotFound)
	token := e.token(t)

	rec := e.do(t, http.MethodPost, "/api/v1/admin/connect/refresh", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.MsgNoPaymentAccount, decodeJSON[httputil.ErrorBody](t, rec).Error)

	rec = e.do(t, http.MethodPost, "/api/v1/admin/connect", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decodeJSON[RedirectResponse](t, rec).URL)

	rec = e.do(t, http.MethodPost, "/api/v1/admin/subscription/cancel", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.MsgNoSubscription, decodeJSON[httputil.ErrorBody](t, rec).Error)
}

// ============================================================================
// Webhooks
// ============================================================================

func TestWebhook_InvalidSignature(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set(SignatureHeader, "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgInvalidSignature, decodeJSON[httputil.ErrorBody](t, rec).Error)
}

func TestWebhook_PaidCheckoutRecordsOrder(t *testing.T) {
	e := newTestEnv(t)
	e.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.ProfileID == "seller-1" && o.ProviderSessionID == "cs_1" && o.AmountTotalCents == 3980
	})).Return(true, nil)

	payload, err := json.Marshal(provider.WebhookEvent{
		ID:   "evt_1",
		Type: provider.EventCheckoutCompleted,
		Session: &provider.CompletedSession{
			ID:          "cs_1",
			Mode:        provider.ModePayment,
			AmountTotal: 3980,
			Currency:    "brl",
			Metadata:    map[string]string{service.MetaSellerID: "seller-1"},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, e.provider.Sign(payload, time.Now()))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeJSON[ReceivedResponse](t, rec).Received)
	e.orders.AssertExpectations(t)
}
