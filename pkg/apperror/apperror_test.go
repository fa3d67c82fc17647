package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"userhub/pkg/apperror"

	"github.com/stretchr/testify/assert"
)

func TestError_HTTPStatus(t *testing.T) {
	cases := map[apperror.Code]int{
		apperror.CodeValidationFailed: http.StatusBadRequest,
		apperror.CodeBadRequest:       http.StatusBadRequest,
		apperror.CodeUnauthenticated:  http.StatusUnauthorized,
		apperror.CodeNotFound:         http.StatusNotFound,
		apperror.CodeConflict:         http.StatusConflict,
		apperror.CodeInternalError:    http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, apperror.New(code, "x").HTTPStatus(), string(code))
	}
	assert.Equal(t, http.StatusInternalServerError, apperror.New("SOMETHING_ELSE", "x").HTTPStatus())
}

func TestFrom_PreservesWrappedFault(t *testing.T) {
	original := apperror.NotFound("user not found")
	wrapped := fmt.Errorf("handler: %w", original)

	got := apperror.From(wrapped)
	assert.Same(t, original, got)
	assert.True(t, apperror.Is(wrapped, apperror.CodeNotFound))
}

func TestFrom_ClassifiesPlainErrorAsInternal(t *testing.T) {
	cause := errors.New("connection reset")

	got := apperror.From(cause)
	assert.Equal(t, apperror.CodeInternalError, got.Code)
	assert.Equal(t, "internal server error", got.Message)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, apperror.From(nil))
}
