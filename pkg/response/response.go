// Package response renders every outward HTTP response as a single Envelope
// shape, both for handler results and for faults caught by the error handler.
package response

import (
	"errors"
	"time"

	"userhub/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSuccessMessage = "ok"
	internalErrorMessage  = "internal server error"
)

// Envelope is the body of every response.
type Envelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
	Path      string `json:"path,omitempty"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// Page is the data payload of a paginated envelope.
type Page[T any] struct {
	List       []T        `json:"list"`
	Pagination Pagination `json:"pagination"`
}

func New(code int, message string, data any, path string) *Envelope {
	return &Envelope{
		Code:      code,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
		Path:      path,
	}
}

// Success builds a 200 envelope.
func Success(data any, message string) *Envelope {
	if message == "" {
		message = DefaultSuccessMessage
	}
	return New(fiber.StatusOK, message, data, "")
}

// Paginate builds a 200 envelope carrying a list and its pagination block.
func Paginate[T any](list []T, pagination Pagination, message string) *Envelope {
	if list == nil {
		list = []T{}
	}
	return Success(Page[T]{List: list, Pagination: pagination}, message)
}

// HandlerFunc is a handler that returns its result instead of writing it.
type HandlerFunc func(c *fiber.Ctx) (any, error)

// Handle adapts fn into a fiber.Handler. Results that are already envelopes
// only get their path filled in; anything else is wrapped as a success.
// Errors are passed on to the application's ErrorHandler untouched.
func Handle(fn HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := fn(c)
		if err != nil {
			return err
		}

		env, ok := result.(*Envelope)
		if !ok {
			env = Success(result, DefaultSuccessMessage)
		}
		if env.Path == "" {
			env.Path = c.OriginalURL()
		}
		return c.Status(fiber.StatusOK).JSON(env)
	}
}

// ErrorHandler maps any error that escapes the middleware chain to an
// envelope. Unknown errors become a generic 500 and their detail is only
// logged.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := internalErrorMessage
		var data any

		var appErr *apperror.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status = appErr.HTTPStatus()
			message = appErr.Message
			if len(appErr.Details) > 0 {
				data = appErr.Details
			}
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		}

		entry := logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.OriginalURL(),
			"status": status,
		})
		if status >= fiber.StatusInternalServerError {
			entry.Error("Request failed")
		} else {
			entry.Debug("Request rejected")
		}

		return c.Status(status).JSON(New(status, message, data, c.OriginalURL()))
	}
}
