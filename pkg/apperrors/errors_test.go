package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", InvalidArg("bad"), http.StatusBadRequest},
		{"not found", NotFound("missing"), http.StatusNotFound},
		{"forbidden", Forbidden("nope"), http.StatusForbidden},
		{"precondition", FailedPrecondition("busy"), http.StatusConflict},
		{"unavailable", Unavailable("store down", errors.New("io")), http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("outer: %w", NotFound("missing")), http.StatusNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestAppErrorIs(t *testing.T) {
	errMissing := NotFound("call session not found")

	assert.True(t, errors.Is(fmt.Errorf("answer: %w", errMissing), errMissing))
	assert.True(t, errors.Is(errMissing, &AppError{Code: CodeNotFound}))
	assert.False(t, errors.Is(errMissing, InvalidArg("call session not found")))
}

func TestMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := Unavailable("failed to send message", cause)

	assert.Equal(t, "failed to send message", Message(err))
	assert.Equal(t, "failed to send message: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", Message(errors.New("raw")))
}
