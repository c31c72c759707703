package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingMiddlewareSetsTraceHeader(t *testing.T) {
	app := fiber.New()
	app.Use(TracingMiddleware())

	var seen string
	app.Get("/ping", func(c *fiber.Ctx) error {
		seen, _ = c.Locals("traceID").(string)
		return c.SendString("pong")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, seen, resp.Header.Get("X-Trace-ID"))
	assert.Len(t, seen, 32)
}

func TestMetricsMiddlewareNilCollector(t *testing.T) {
	app := fiber.New()
	app.Use(MetricsMiddleware(nil))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestInitMetricsIsShared(t *testing.T) {
	a := InitMetrics("istancool-test")
	b := InitMetrics("istancool-test")
	assert.Same(t, a, b)
}
