package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCodeWalksWrappedChain(t *testing.T) {
	inner := New(CodeConflict, "username taken")
	outer := Wrap(fmt.Errorf("create: %w", inner), CodeInternal, "failed to create user")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeConflict))
	assert.False(t, HasCode(outer, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(errors.New("dial tcp: refused"), CodeUnavailable, "admin API unreachable")
	assert.Equal(t, "admin API unreachable: dial tcp: refused", err.Error())
	assert.Equal(t, "not found", New(CodeNotFound, "not found").Error())
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeValidation, http.StatusUnprocessableEntity},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeUnavailable, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.code))
		})
	}

	assert.Equal(t, CodeConflict, CodeForStatus(http.StatusConflict))
	assert.Equal(t, CodeUnavailable, CodeForStatus(http.StatusServiceUnavailable))
	assert.Equal(t, CodeUnavailable, CodeForStatus(0))
	assert.Equal(t, CodeBadRequest, CodeForStatus(http.StatusTeapot))
}
