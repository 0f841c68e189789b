package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsAppError(t *testing.T) {
	base := NewInsufficientStock("p1", 5, 3)
	wrapped := fmt.Errorf("create movement: %w", base)

	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("AsAppError must unwrap through fmt.Errorf")
	}
	if appErr.Code != CodeInsufficientStock {
		t.Errorf("code = %s, want %s", appErr.Code, CodeInsufficientStock)
	}
	if appErr.Details["requested"] != 5 || appErr.Details["available"] != 3 {
		t.Errorf("details = %v", appErr.Details)
	}

	if _, ok := AsAppError(errors.New("plain")); ok {
		t.Error("plain errors must not convert")
	}
}

func TestIsCode(t *testing.T) {
	err := NewExpired("movement", "42")
	if !IsCode(err, CodeExpired) {
		t.Error("IsCode must match the error's code")
	}
	if IsCode(err, CodeNotFound) {
		t.Error("IsCode must not match a different code")
	}
	if IsCode(nil, CodeExpired) {
		t.Error("nil error matches no code")
	}
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidation("bad"), http.StatusBadRequest},
		{NewInvalidDestination("bad"), http.StatusBadRequest},
		{NewNotFound("product", "42"), http.StatusNotFound},
		{NewInsufficientStock("p", 2, 1), http.StatusUnprocessableEntity},
		{NewAlreadyConfirmed("movement", "42"), http.StatusConflict},
		{NewExpired("movement", "42"), http.StatusGone},
		{NewConcurrentModification("product", "42"), http.StatusConflict},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := GetHTTPStatus(tt.err); got != tt.want {
			t.Errorf("GetHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWithDetailAndCause(t *testing.T) {
	cause := errors.New("db down")
	err := NewInternal(cause).WithDetail("op", "insert")

	if !errors.Is(err, cause) {
		t.Error("Unwrap must expose the cause")
	}
	if err.Details["op"] != "insert" {
		t.Errorf("details = %v", err.Details)
	}
}
