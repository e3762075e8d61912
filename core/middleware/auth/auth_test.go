package auth_test

import (
	"net/http/httptest"
	"testing"

	"webdesk/core/middleware/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(cfg auth.Config) *fiber.App {
	app := fiber.New()
	app.Use(auth.New(cfg))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/thing", func(c *fiber.Ctx) error { return c.SendString("thing") })
	return app
}

func TestAuth(t *testing.T) {
	app := newApp(auth.Config{ApiKey: "secret", Public: []string{"/health"}})

	tests := []struct {
		name   string
		path   string
		header string
		value  string
		want   int
	}{
		{"MissingKey", "/api/thing", "", "", fiber.StatusUnauthorized},
		{"WrongKey", "/api/thing", auth.Header, "nope", fiber.StatusUnauthorized},
		{"HeaderKey", "/api/thing", auth.Header, "secret", fiber.StatusOK},
		{"BearerKey", "/api/thing", fiber.HeaderAuthorization, "Bearer secret", fiber.StatusOK},
		{"PublicPath", "/health", "", "", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuth_Disabled(t *testing.T) {
	app := newApp(auth.Config{})
	resp, err := app.Test(httptest.NewRequest("GET", "/api/thing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
