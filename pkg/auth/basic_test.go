package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestAdminAuth(t *testing.T) {
	prev := AdminSecretKey
	AdminSecretKey = "s3cret"
	defer func() { AdminSecretKey = prev }()

	app := fiber.New()
	app.Get("/", AdminAuth(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	cases := []struct {
		header string
		code   int
	}{
		{"", fiber.StatusUnauthorized},
		{"wrong", fiber.StatusUnauthorized},
		{"s3cret", fiber.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if tc.header != "" {
			req.Header.Set("X-Admin-Secret", tc.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, tc.code, resp.StatusCode, "header %q", tc.header)
	}
}
