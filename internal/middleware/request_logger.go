package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type RequestLoggerMiddleware struct {
	logger *logrus.Logger
}

func NewRequestLoggerMiddleware(logger *logrus.Logger) *RequestLoggerMiddleware {
	return &RequestLoggerMiddleware{
		logger: logger,
	}
}

// Handle logs one line per request once the response status is final.
// Request bodies are never logged since they carry passwords.
func (r *RequestLoggerMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()

		err := c.Next()

		statusCode := c.Response().StatusCode()
		logFields := logrus.Fields{
			"status_code":   statusCode,
			"method":        c.Method(),
			"path":          c.Path(),
			"ip":            c.IP(),
			"request_id":    c.GetRespHeader(fiber.HeaderXRequestID),
			"duration_ms":   time.Since(startTime).Milliseconds(),
			"response_size": len(c.Response().Body()),
		}
		if identity, ok := CurrentUser(c); ok {
			logFields["user_id"] = identity.ID
		}
		if err != nil {
			logFields["error"] = err.Error()
		}

		entry := r.logger.WithFields(logFields)
		switch {
		case statusCode >= 500:
			entry.Error("Request failed")
		case statusCode >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}

		return err
	}
}
