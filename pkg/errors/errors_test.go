package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NotFound("registration", nil), http.StatusNotFound},
		{BadRequest("invalid submission", nil), http.StatusBadRequest},
		{Unauthorized(nil), http.StatusUnauthorized},
		{Forbidden("admin access required"), http.StatusForbidden},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.StatusCode())
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("transition failed: %w", NotFound("pending registration", nil))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsBadRequest(wrapped))

	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("no rows in result set")
	err := NotFound("registration", cause)

	assert.Contains(t, err.Error(), "registration not found")
	assert.Contains(t, err.Error(), "no rows")
	assert.ErrorIs(t, err, cause)
}
