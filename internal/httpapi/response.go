package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/MrEthical07/dashauth"
	"github.com/go-chi/chi/v5"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{Status: "error", Code: code, Message: message})
}

// fail maps an engine error to a response, logging server-side failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status >= 500 {
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
	}
	writeError(w, status, code, msg)
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, dashauth.ErrInvalidEmail),
		errors.Is(err, dashauth.ErrInvalidName),
		errors.Is(err, dashauth.ErrInvalidRole),
		errors.Is(err, dashauth.ErrInvalidStatus),
		errors.Is(err, dashauth.ErrPasswordPolicy):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, dashauth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"
	case errors.Is(err, dashauth.ErrUnauthorized), errors.Is(err, dashauth.ErrTokenInvalid):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials"
	case errors.Is(err, dashauth.ErrIncorrectPassword):
		return http.StatusBadRequest, "INCORRECT_PASSWORD", "current password is incorrect"
	case errors.Is(err, dashauth.ErrAccountDisabled):
		return http.StatusForbidden, "ACCOUNT_DISABLED", "account is disabled"
	case errors.Is(err, dashauth.ErrPermissionDenied):
		return http.StatusForbidden, "FORBIDDEN", "permission denied"
	case errors.Is(err, dashauth.ErrLoginRateLimited), errors.Is(err, dashauth.ErrResetRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"
	case errors.Is(err, dashauth.ErrDuplicateEmail):
		return http.StatusConflict, "CONFLICT", "email already in use"
	case errors.Is(err, dashauth.ErrUserNotFound),
		errors.Is(err, dashauth.ErrEmailNotFound),
		errors.Is(err, dashauth.ErrSessionNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, dashauth.ErrNoActiveReset):
		return http.StatusNotFound, "NO_ACTIVE_RESET", err.Error()
	case errors.Is(err, dashauth.ErrResetExpired):
		return http.StatusGone, "RESET_EXPIRED", err.Error()
	case errors.Is(err, dashauth.ErrIncorrectCode):
		return http.StatusBadRequest, "INCORRECT_CODE", err.Error()
	case errors.Is(err, dashauth.ErrResetNotVerified):
		return http.StatusConflict, "RESET_NOT_VERIFIED", err.Error()
	case errors.Is(err, dashauth.ErrResetAttemptsExceeded):
		return http.StatusTooManyRequests, "RESET_ATTEMPTS_EXCEEDED", err.Error()
	case errors.Is(err, dashauth.ErrStoreUnavailable), errors.Is(err, dashauth.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "UNAVAILABLE", "service unavailable"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

const maxBodyBytes = 1 << 16

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func userIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid user id")
	}
	return id, nil
}
