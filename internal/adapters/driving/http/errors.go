package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error     string `json:"error" example:"invalid request body"`
	Retriable bool   `json:"retriable,omitempty" example:"true"`
	Stage     string `json:"stage,omitempty" example:"ANALYZING"`
	Area      string `json:"area,omitempty" example:"IT"`
}

// statusFor maps a service error onto an HTTP status and response body
func statusFor(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error()}

	var pipeErr *domain.PipelineError
	if errors.As(err, &pipeErr) {
		resp.Stage = string(pipeErr.Stage)
		resp.Area = string(pipeErr.Area)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		resp.Error = "request timed out"
		return http.StatusGatewayTimeout, resp
	case domain.IsRetriable(err):
		resp.Retriable = true
		return http.StatusServiceUnavailable, resp
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, resp
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidTopicArea),
		errors.Is(err, domain.ErrEmptyDocument):
		return http.StatusBadRequest, resp
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusUnauthorized, resp
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, resp
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, resp
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, resp
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, resp
	case errors.Is(err, domain.ErrLockTimeout):
		resp.Retriable = true
		return http.StatusServiceUnavailable, resp
	case pipeErr != nil:
		return http.StatusBadGateway, resp
	}

	var ingestErr *domain.IngestionError
	if errors.As(err, &ingestErr) {
		return http.StatusBadRequest, resp
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}

// writeServiceError writes err with its mapped status. Server errors are logged.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, resp)
}

// errorMessage overrides the response text for one sentinel error
type errorMessage struct {
	err     error
	message string
}

// errorMessages is checked in order, so the first listed sentinel wins when
// an error matches several
type errorMessages []errorMessage

// fail writes err using the first matching override message, keeping the
// mapped status. Errors without an override are written unchanged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, messages errorMessages) {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			status, _ := statusFor(m.err)
			writeError(w, status, m.message)
			return
		}
	}
	s.writeServiceError(w, r, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// readJSON decodes the request body into v. On failure it writes a 400 and
// returns false.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// requireAuth returns the caller's auth context, or writes a 401 and
// returns false when the route was reached unauthenticated
func requireAuth(w http.ResponseWriter, r *http.Request) (*domain.AuthContext, bool) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return authCtx, true
}
