// Package http exposes the expense API over net/http.
//
// This file implements the builder for the JSON envelope every endpoint
// answers with: {"statusCode", "data", "message", "success"}.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"expenses/internal/core"
	"expenses/internal/log"
)

// APIResponse is the envelope shared by every JSON response.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	data       any
	message    string
	headers    map[string]string
	cookies    []*http.Cookie
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Data(data any) *ResponseBuilder {
	b.data = data
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.message = msg
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *ResponseBuilder) Cookie(c *http.Cookie) *ResponseBuilder {
	b.cookies = append(b.cookies, c)
	return b
}

// Write sends the envelope. Success is derived from the status code.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	for _, c := range b.cookies {
		http.SetCookie(w, c)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{
		StatusCode: b.statusCode,
		Data:       b.data,
		Message:    b.message,
		Success:    b.statusCode < 400,
	})
}

// ErrorResponse creates an error envelope with no data.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Message(message)
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").
		Header("Allow", allowedMethods)
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status mapped from err. Client errors use
// fallback as the message unless it is empty; server errors are logged
// and never leak details.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeInternal).ToSlice()...)
		InternalServerError("Internal server error").Write(w)
		return
	}
	msg := fallback
	if msg == "" {
		msg = clientMessage(err)
	}
	logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err.Error(), "status", status)
	ErrorResponse(status, msg).Write(w)
}

// clientMessage strips the category prefix (e.g. "bad request: ") from
// err and capitalizes the rest.
func clientMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{core.ErrBadRequest, core.ErrUnauthorized, core.ErrNotFound, core.ErrConflict} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok && rest != "" {
			msg = rest
			break
		}
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
