package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"bizledger/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// statusForKind maps a domain error kind to its HTTP status.
// An unknown or empty kind is an internal failure.
func statusForKind(kind core.ErrorKind) int {
	switch kind {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindInvalidInput:
		return http.StatusBadRequest
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindInsufficientStock, core.KindConflict, core.KindImmutableRecord, core.KindAlreadyPaid:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorBody(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeServiceError maps an error returned by the application layer. Domain
// errors carry their message to the client; anything else is logged and
// reported as a bare 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := requestIDFromContext(r.Context())
	var de *core.Error
	if errors.As(err, &de) {
		writeErrorBody(w, statusForKind(de.Kind), errorResponse{
			Error:     de.Error(),
			Code:      string(de.Kind),
			RequestID: reqID,
			Fields:    de.Fields,
		})
		return
	}
	h.log.Error("request failed",
		zap.String("request_id", reqID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeErrorBody(w, http.StatusInternalServerError, errorResponse{
		Error:     "internal server error",
		Code:      "INTERNAL_ERROR",
		RequestID: reqID,
	})
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
