package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Conflict("dup"), http.StatusBadRequest},
		{Unauthorized("no"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Unavailable("down"), http.StatusServiceUnavailable},
		{Internal("boom", errors.New("x")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Status(), tc.err.Message)
	}
}

func TestAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create order: %w", NotFound("Cart is empty"))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "Cart is empty", appErr.Message)
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("db error", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "db error: connection reset", err.Error())
}
