package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/devindex/internal/domain"
)

// Error codes returned in ErrorResponse.Code.
const (
	codeBadRequest     = "bad_request"
	codeUnauthorized   = "unauthorized"
	codeUnknownService = "unknown_service"
	codeUnavailable    = "service_unavailable"
	codeInternal       = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, r *http.Request, err error) bool

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// clientMessage returns what the caller may see of err. Validation errors carry
// the caller's own input and are returned whole; everything else is reduced to
// its sentinel.
func clientMessage(err error) string {
	for _, s := range []error{
		domain.ErrUnknownOperator,
		domain.ErrInvalidFilterValue,
		domain.ErrInvalidRequest,
		domain.ErrUnauthorized,
	} {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	for _, s := range []error{
		domain.ErrUnknownService,
		domain.ErrStoreUnavailable,
		domain.ErrQueueUnavailable,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, r, status, code, clientMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
	for _, h := range s.errorHandlers {
		if h(w, r, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
}
