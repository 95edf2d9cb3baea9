package chi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/logger"
)

// Error codes returned in the response body.
const (
	CodeInvalidQuery     = "invalid_query"
	CodeRateLimited      = "rate_limited"
	CodePermissionDenied = "permission_denied"
	CodeIndexUnavailable = "index_unavailable"
	CodeUnauthorized     = "unauthorized"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter *int   `json:"retry_after_seconds,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

var errorHandlers = []errorHandler{
	rateLimitedHandler,
	detailHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
	detailHandler(domain.ErrPermissionDenied, http.StatusForbidden, CodePermissionDenied),
	sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, CodeIndexUnavailable),
}

// handleDomainError maps err to a response. Unrecognized errors are logged and reported as 500.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range errorHandlers {
		if h(w, err) {
			return
		}
	}
	logger.FromContext(r.Context()).Error("Unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// detailHandler matches a sentinel and returns the full error text. Used for validation errors whose
// message is built for the caller.
func detailHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// sentinelHandler matches a sentinel and returns only the sentinel text.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// rateLimitedHandler sets Retry-After from the hint carried by the error, rounded up to whole seconds.
func rateLimitedHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrRateLimited) {
		return false
	}
	resp := ErrorResponse{Code: CodeRateLimited, Message: domain.ErrRateLimited.Error()}
	var rl *domain.RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		resp.RetryAfter = &secs
	}
	writeJSON(w, http.StatusTooManyRequests, resp)
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// errorPayload converts an error into the body used on the session socket.
func errorPayload(err error) ErrorResponse {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return ErrorResponse{Code: CodeInvalidQuery, Message: err.Error()}
	case errors.Is(err, domain.ErrPermissionDenied):
		return ErrorResponse{Code: CodePermissionDenied, Message: err.Error()}
	case errors.Is(err, domain.ErrRateLimited):
		return ErrorResponse{Code: CodeRateLimited, Message: domain.ErrRateLimited.Error()}
	case errors.Is(err, domain.ErrIndexUnavailable):
		return ErrorResponse{Code: CodeIndexUnavailable, Message: domain.ErrIndexUnavailable.Error()}
	default:
		return ErrorResponse{Code: CodeInternalError, Message: "internal error"}
	}
}
