package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"nuclear/internal/apperr"
	"nuclear/internal/observability"
)

const errInternalServer = "Internal server error"

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindRelationship:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindOperation:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// respondWithError writes err as {error, details?}. Operation failures are
// logged and reported with their cause; the client sees a generic message.
func respondWithError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Operation("", "handle request", err)
	}

	status := statusFor(e.Kind)
	if status == http.StatusInternalServerError {
		reqID := requestIDFrom(r.Context())
		log.Error("request failed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
			zap.NamedError("cause", e.Err))
		observability.CaptureRequestErr(err, r.Method, r.Pattern, reqID)
		respondJSON(w, status, errorResponse{Error: errInternalServer})
		return
	}

	msg := e.Message
	if msg == "" {
		msg = e.Error()
	}
	respondJSON(w, status, errorResponse{Error: msg, Details: e.Fields})
}
