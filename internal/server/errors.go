package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/festquest/internal/festival"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeInvalidRequest   = "invalid_request"
	codeUnauthorized     = "unauthorized"
	codeInvalidCode      = "invalid_code"
	codeAlreadyCompleted = "already_completed"
	codeNotFound         = "not_found"
	codeConflict         = "conflict"
	codeStorageFault     = "storage_fault"
	codeInternal         = "internal"
)

// writeDomainError maps service errors onto HTTP responses. Storage faults
// and unknown errors are logged; user-correctable outcomes are not.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, festival.ErrInvalidCode):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidCode, "invalid scan code")
	case errors.Is(err, festival.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, codeAlreadyCompleted, "activity already completed")
	case errors.Is(err, festival.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
	case errors.Is(err, festival.ErrEmailTaken):
		writeError(w, http.StatusConflict, codeConflict, "email already registered")
	case errors.Is(err, festival.ErrInvalidFamilyCode):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "unknown family invite code")
	case errors.Is(err, festival.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "user not found")
	case errors.Is(err, festival.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	case festival.IsStorage(err):
		logger.ErrorContext(r.Context(), "storage fault", "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, codeStorageFault, "temporarily unavailable, please retry")
	default:
		logger.ErrorContext(r.Context(), "internal error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
