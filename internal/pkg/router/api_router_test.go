package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jariassh/dropcost-master/app/controllers"
	"github.com/jariassh/dropcost-master/app/repository"
	"github.com/jariassh/dropcost-master/internal/pkg/billing"
	"github.com/jariassh/dropcost-master/internal/pkg/middleware"
	"github.com/jariassh/dropcost-master/internal/pkg/testutil"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db := testutil.NewTestDB(t)
	svc := billing.NewServiceFromDB(db, billing.Dependencies{})
	bc := controllers.NewBillingController(svc, repository.NewWalletRepository(db), nil, nil)

	app := fiber.New()
	r := &ApiRouter{
		billing:  bc,
		adminKey: middleware.AdminAPIKeyMiddlewareWithKey("admin-key"),
	}
	setup(app, r)
	return app
}

func send(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestApiRouter_RateLimitExemptsWebhook(t *testing.T) {
	t.Setenv("API_RATE_LIMIT", "2")
	app := newTestApp(t)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments?action=webhook&type=merchant_order&id=77", nil)
		assert.Equal(t, http.StatusOK, send(t, app, req), "webhook delivery %d", i)
	}

	assert.Equal(t, http.StatusOK, send(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)))
	assert.Equal(t, http.StatusOK, send(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)))
	assert.Equal(t, http.StatusTooManyRequests, send(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments?action=webhook&type=payment", nil)
	assert.Equal(t, http.StatusOK, send(t, app, req))
}

func TestApiRouter_AdminRoutesRequireKey(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/billing/counters", nil)
	assert.Equal(t, http.StatusUnauthorized, send(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/billing/counters", nil)
	req.Header.Set("X-API-Key", "admin-key")
	assert.Equal(t, http.StatusServiceUnavailable, send(t, app, req))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/wallets/ghost/reconcile", nil)
	req.Header.Set("Authorization", "Bearer admin-key")
	assert.Equal(t, http.StatusNotFound, send(t, app, req))

	// Read side is not behind the admin key.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/wallets/ghost", nil)
	assert.Equal(t, http.StatusNotFound, send(t, app, req))
}

func TestNewRedisStorage(t *testing.T) {
	client := testutil.NewTestRedis(t, 12)
	storage := newRedisStorage(client, 12)
	t.Cleanup(func() { _ = storage.Close() })

	require.NoError(t, storage.Set("limiter:test", []byte("1"), time.Minute))
	got, err := storage.Get("limiter:test")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	// Limiter keys land in the configured database.
	assert.Equal(t, int64(1), client.Exists(context.Background(), "limiter:test").Val())
}
