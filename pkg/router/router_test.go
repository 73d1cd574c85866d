package router

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestParseBodyLimit(t *testing.T) {
	require.Equal(t, 512*1024, parseBodyLimit("512k"))
	require.Equal(t, 2*1024*1024, parseBodyLimit(" 2M "))
	require.Equal(t, 1024*1024*1024, parseBodyLimit("1G"))
	require.Equal(t, 100, parseBodyLimit("100"))
	require.Equal(t, 8*1024*1024, parseBodyLimit("nope"))
	require.Equal(t, 8*1024*1024, parseBodyLimit(""))
}

func TestErrorHandlerAndRecovery(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: HttpErrorHandler})
	app.Use(RecoveryMiddleware())
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "no such thing")
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body Response
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	require.False(t, body.Status)
	require.Equal(t, "no such thing", body.Error)

	resp, err = app.Test(httptest.NewRequest("GET", "/panic", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestResponseJSONKeepsCallerShape(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return ResponseJSON(c, fiber.StatusNotFound, fiber.Map{"error": "Session not found"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	require.JSONEq(t, `{"error":"Session not found"}`, string(raw))
}

func TestHttpRealIP(t *testing.T) {
	app := fiber.New()
	app.Use(HttpRealIP())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("remote_ip").(string))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, _ := io.ReadAll(resp.Body)
	require.Equal(t, "10.0.0.1", string(raw))
}

func TestCacheSkipsPollingPaths(t *testing.T) {
	app := fiber.New()
	app.Use(HttpCacheInMemory(60, "/api"))

	hits := 0
	handler := func(c *fiber.Ctx) error {
		hits++
		return c.SendString("ok")
	}
	app.Get("/page", handler)
	app.Get("/api/check", handler)

	for i := 0; i < 2; i++ {
		_, err := app.Test(httptest.NewRequest("GET", "/page", nil))
		require.NoError(t, err)
	}
	require.Equal(t, 1, hits)

	for i := 0; i < 2; i++ {
		_, err := app.Test(httptest.NewRequest("GET", "/api/check", nil))
		require.NoError(t, err)
	}
	require.Equal(t, 3, hits)
}

func TestCacheNeverServesAdminResponses(t *testing.T) {
	app := fiber.New()
	app.Use(HttpCacheInMemory(60, "/admin"))

	guarded := func(c *fiber.Ctx) error {
		if c.Get("X-Admin-Secret") != "s3cret" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendString("version")
	}
	app.Get("/admin/version", guarded)
	app.Get("/status", guarded)

	for _, target := range []string{"/admin/version", "/status"} {
		req := httptest.NewRequest("GET", target, nil)
		req.Header.Set("X-Admin-Secret", "s3cret")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, target)

		resp, err = app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, target)

		req = httptest.NewRequest("GET", target, nil)
		req.Header.Set("X-Admin-Secret", "s3cret")
		resp, err = app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, target)
	}
}
