package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"expenses/internal/core"
	"expenses/internal/services"
)

func TestResponseBuilder_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().
		Status(http.StatusCreated).
		Data(map[string]int{"n": 1}).
		Message("done").
		Header("X-Custom", "value").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("custom header not set")
	}
	var got APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.StatusCode != 201 || !got.Success || got.Message != "done" {
		t.Errorf("envelope = %+v", got)
	}
}

func TestErrorResponse_NotSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError("GET, POST").Write(w)
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "GET, POST" {
		t.Fatalf("status = %d allow = %q", w.Code, w.Header().Get("Allow"))
	}
	var got APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Success {
		t.Error("error envelope must not be successful")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", core.ErrNotFound), http.StatusNotFound},
		{services.ErrImportRejected, http.StatusBadRequest},
		{services.ErrEmailTaken, http.StatusConflict},
		{services.ErrInvalidToken, http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestClientMessage(t *testing.T) {
	err := fmt.Errorf("%w: %w", core.ErrBadRequest, core.ErrInvalidDate)
	if got := clientMessage(err); got != "Invalid date" {
		t.Errorf("clientMessage() = %q", got)
	}
	if got := clientMessage(services.ErrEmailTaken); got != "User with this email already exists" {
		t.Errorf("clientMessage() = %q", got)
	}
}
