package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"smartplate/internal/location"
	"smartplate/pkg/types"

	"github.com/alexedwards/flow"
)

const messageFixFields = "Please fix the highlighted fields."

type errorResponse struct {
	Error       string            `json:"error"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Code        string            `json:"code,omitempty"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// errorStatus maps a domain error to the status and body the client sees.
// ok is false for errors that are not the caller's fault.
func errorStatus(err error) (int, errorResponse, bool) {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, errorResponse{Error: messageFixFields, FieldErrors: verr.FieldErrors}, true
	}

	var lerr *location.Error
	if errors.As(err, &lerr) {
		status := http.StatusServiceUnavailable
		switch lerr.Code {
		case location.CodePermissionDenied:
			status = http.StatusForbidden
		case location.CodeUnsupported:
			status = http.StatusNotImplemented
		case location.CodeTimeout:
			status = http.StatusGatewayTimeout
		}
		return status, errorResponse{Error: lerr.Error(), Code: string(lerr.Code)}, true
	}

	switch {
	case errors.Is(err, types.ErrUnauthenticated), errors.Is(err, types.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: err.Error()}, true
	case errors.Is(err, types.ErrForbidden),
		errors.Is(err, types.ErrRoleNotFound),
		errors.Is(err, types.ErrVerificationRequired),
		errors.Is(err, types.ErrAccountNotConfirmed):
		return http.StatusForbidden, errorResponse{Error: err.Error()}, true
	case errors.Is(err, types.ErrRequestUnavailable):
		return http.StatusConflict, errorResponse{Error: "This request is no longer available."}, true
	case errors.Is(err, types.ErrInvalidTransition), errors.Is(err, types.ErrRequestNotDeletable), errors.Is(err, types.ErrVerificationLocked):
		return http.StatusConflict, errorResponse{Error: err.Error()}, true
	case errors.Is(err, types.ErrRequestNotFound),
		errors.Is(err, types.ErrDetailsNotFound),
		errors.Is(err, types.ErrDocumentNotFound),
		errors.Is(err, types.ErrProfileNotFound),
		errors.Is(err, types.ErrUserNotFound),
		errors.Is(err, location.ErrNoReport):
		return http.StatusNotFound, errorResponse{Error: err.Error()}, true
	}

	return http.StatusInternalServerError, errorResponse{Error: "Something went wrong. Please try again."}, false
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body, ok := errorStatus(err)
	if !ok {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	s.writeJSON(w, status, body)
}

func (s *Service) badRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

// decodeForm parses urlencoded and multipart bodies into dst.
func (s *Service) decodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return decoder.Decode(dst, r.Form)
}

func idParam(r *http.Request) string {
	return flow.Param(r.Context(), "id")
}
