package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.fail(w, r, err), or respondError with an explicit status
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered as JSON for API calls, as a page otherwise

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/creative-hub/internal/core"
	"github.com/JonMunkholm/creative-hub/internal/logging"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

func newErrorResponse(err error) ErrorResponse {
	msg := core.MapError(err)
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var ve core.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	return resp
}

// statusFor picks the HTTP status for an error returned by core.
func statusFor(err error) int {
	var ve core.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidGroup),
		errors.Is(err, core.ErrInvalidID),
		errors.Is(err, core.ErrUnknownExportFormat):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMobileRegistered),
		errors.Is(err, core.ErrRequestInFlight),
		errors.Is(err, core.ErrStaleCheck),
		errors.Is(err, core.ErrFormComplete):
		return http.StatusConflict
	case errors.Is(err, core.ErrRegistrationNotFound),
		errors.Is(err, core.ErrFormNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrAdminRequired):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrMobileCheckFailed),
		errors.Is(err, core.ErrTooManyExports):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// fail responds to err with the status statusFor picks.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns an appropriate response
// based on the request type (JSON or HTML).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	ue := core.NewUserError(err)

	level := slog.LevelError
	if statusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logging.WithFields(r.Context(),
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
	).Log(r.Context(), level, "request error",
		"error", ue.Technical.Error(),
		"code", ue.User.Code,
		"user_facing", core.IsUserFacing(err),
	)

	if wantsJSON(r) {
		writeJSON(w, statusCode, newErrorResponse(err))
		return
	}
	s.renderError(w, r, ue.User, statusCode)
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
