package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardedApp(key string) *fiber.App {
	app := fiber.New()
	app.Get("/admin", AdminAPIKeyMiddlewareWithKey(key), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAdminAPIKeyMiddleware(t *testing.T) {
	app := newGuardedApp("s3cret")

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"header key", "X-API-Key", "s3cret", http.StatusOK},
		{"bearer", "Authorization", "Bearer s3cret", http.StatusOK},
		{"bearer lowercase", "Authorization", "bearer s3cret", http.StatusOK},
		{"basic scheme", "Authorization", "Basic s3cret", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestAdminAPIKeyMiddleware_Disabled(t *testing.T) {
	app := newGuardedApp("")
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-API-Key", "")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
