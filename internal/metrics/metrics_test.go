package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"userhub/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware_RecordsFinalStatus(t *testing.T) {
	reg := metrics.New()
	reg.RecordUserOperation("register", nil)
	reg.RecordUserOperation("register", errors.New("conflict"))

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusTeapot).SendString(err.Error())
		},
	})
	app.Use(reg.HTTPMiddleware())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("fine") })
	app.Get("/fail", func(c *fiber.Ctx) error { return errors.New("nope") })
	app.Get("/metrics", reg.Handler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `http_server_requests_total{method="GET",route="/ok",status_code="200"} 1`)
	assert.Contains(t, text, `http_server_requests_total{method="GET",route="/fail",status_code="418"} 1`)
	assert.Contains(t, text, `user_operations_total{operation="register",outcome="success"} 1`)
	assert.Contains(t, text, `user_operations_total{operation="register",outcome="failure"} 1`)
}
