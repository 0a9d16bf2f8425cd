package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewUnauthorizedError("who"), http.StatusUnauthorized},
		{NewForbiddenError("no"), http.StatusForbidden},
		{NewNotFoundError("Quote", "q1"), http.StatusNotFound},
		{NewTransientError(errors.New("timeout")), http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", NewValidationError("bad")), http.StatusBadRequest},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), tt.err.Error())
	}
}

func TestHasCode(t *testing.T) {
	t.Parallel()
	assert.True(t, HasCode(fmt.Errorf("x: %w", ErrAuthPending), CodeUnauthorized))
	assert.False(t, HasCode(errors.New("x"), CodeUnauthorized))
}
