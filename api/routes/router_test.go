package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferremas/backoffice/api/controllers"
	"github.com/ferremas/backoffice/internal/inventory"
	"github.com/ferremas/backoffice/internal/orders"
	product "github.com/ferremas/backoffice/internal/products"
	pkgauth "github.com/ferremas/backoffice/pkg/auth"
	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/enums"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubOrders struct {
	orders.Service
	lastActor orders.Actor
}

func (s *stubOrders) List(_ context.Context, actor orders.Actor, _ orders.ListFilters, params pagination.Params) (*orders.OrderList, error) {
	s.lastActor = actor
	return &orders.OrderList{Items: []orders.OrderDTO{}, Meta: pagination.NewMeta(params, 0)}, nil
}

type stubStock struct {
	controllers.StockService
}

func (stubStock) List(_ context.Context, _ inventory.ListFilters, params pagination.Params) (*inventory.LevelList, error) {
	return &inventory.LevelList{Items: []inventory.LevelDTO{}, Meta: pagination.NewMeta(params, 0)}, nil
}

type stubProducts struct {
	product.Service
}

func (stubProducts) ListProducts(_ context.Context, _ product.ListFilters, params pagination.Params) (*product.ProductList, error) {
	return &product.ProductList{Items: []product.ProductDTO{}, Meta: pagination.NewMeta(params, 0)}, nil
}

type stubLimiter struct{}

func (stubLimiter) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "ferremas-test", ExpirationMinutes: 5},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow: time.Minute,
			LoginLimit:  5,
			IPLimit:     30,
		},
	}
}

func newTestRouter(t *testing.T, ordersSvc *stubOrders, readiness map[string]controllers.Pinger) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	handler := NewRouter(Dependencies{
		Config:     cfg,
		Logger:     logg,
		Readiness:  readiness,
		RateLimits: stubLimiter{},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Products: stubProducts{},
		Orders:   ordersSvc,
		Stock:    stubStock{},
	})
	return handler, cfg
}

func bearer(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(handler http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	handler, _ := newTestRouter(t, &stubOrders{}, map[string]controllers.Pinger{"database": stubPinger{}})

	rec := serve(handler, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Backoffice-Env"))

	rec = serve(handler, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
}

func TestReadinessFailsWhenDependencyDown(t *testing.T) {
	handler, _ := newTestRouter(t, &stubOrders{}, map[string]controllers.Pinger{"redis": stubPinger{err: assert.AnError}})

	rec := serve(handler, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsMounted(t *testing.T) {
	handler, _ := newTestRouter(t, &stubOrders{}, nil)

	rec := serve(handler, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# metrics"))
}

func TestCatalogBrowsingIsPublic(t *testing.T) {
	handler, _ := newTestRouter(t, &stubOrders{}, nil)

	rec := serve(handler, http.MethodGet, "/api/products?page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data product.ProductList `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Meta.Page)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	handler, _ := newTestRouter(t, &stubOrders{}, nil)

	for _, path := range []string{"/api/orders", "/api/stock", "/api/auth/profile", "/api/events/stream"} {
		rec := serve(handler, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestOrdersReceiveAuthenticatedActor(t *testing.T) {
	ordersSvc := &stubOrders{}
	handler, cfg := newTestRouter(t, ordersSvc, nil)
	userID := uuid.New()

	rec := serve(handler, http.MethodGet, "/api/orders", bearer(t, cfg, userID, enums.RoleCustomer))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, ordersSvc.lastActor.UserID)
	assert.Equal(t, enums.RoleCustomer, ordersSvc.lastActor.Role)
}

func TestStockRoutesEnforceRoles(t *testing.T) {
	handler, cfg := newTestRouter(t, &stubOrders{}, nil)

	rec := serve(handler, http.MethodGet, "/api/stock", bearer(t, cfg, uuid.New(), enums.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(handler, http.MethodGet, "/api/stock", bearer(t, cfg, uuid.New(), enums.RoleVendor))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(handler, http.MethodPost, "/api/stock/transfer", bearer(t, cfg, uuid.New(), enums.RoleVendor))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminOnlyRoutes(t *testing.T) {
	handler, cfg := newTestRouter(t, &stubOrders{}, nil)

	rec := serve(handler, http.MethodPost, "/api/products", bearer(t, cfg, uuid.New(), enums.RoleWarehouse))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(handler, http.MethodGet, "/api/auth/users", bearer(t, cfg, uuid.New(), enums.RoleAccountant))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(handler, http.MethodPost, "/api/payments/refund/"+uuid.NewString(), bearer(t, cfg, uuid.New(), enums.RoleVendor))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
