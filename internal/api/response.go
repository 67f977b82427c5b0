package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gapscout/internal/store"
	"github.com/sells-group/gapscout/internal/survival"
	"github.com/sells-group/gapscout/internal/validate"
)

// Error codes of API error bodies.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// APIError is the body of every error response.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorBody struct {
	Error APIError `json:"error"`
}

// paramError reports a query parameter that could not be parsed.
type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "invalid value " + `"` + e.value + `"` + " for parameter " + e.name
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	respondJSON(w, status, errorBody{Error: APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// respondErr maps domain errors to status codes: validation 422, unknown
// area 404, predictor unavailable 503, malformed parameters 400.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validate.Error
	var pe *paramError
	switch {
	case errors.As(err, &ve):
		respondError(w, r, http.StatusUnprocessableEntity, ErrCodeValidationFailed, ve.Error(), ve.Fields)
	case errors.As(err, &pe):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, pe.Error(), nil)
	case eris.Is(err, store.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil)
	case eris.Is(err, survival.ErrUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "survival model unavailable", nil)
	default:
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "internal error", nil)
	}
}
