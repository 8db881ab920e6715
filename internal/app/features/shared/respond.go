// internal/app/features/shared/respond.go
//
// JSON response helpers used by every feature handler. The API surface
// is JSON-only; errors come back as {"error": "..."} with a status
// derived from the error's kind.
package shared

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/edusync/internal/app/system/apperr"

	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Created writes v with 201.
func Created(w http.ResponseWriter, v interface{}) {
	JSON(w, http.StatusCreated, v)
}

// NoContent writes 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// BadRequest writes 400 with a message.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// NotFound writes 404 with a message.
func NotFound(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusNotFound, errorBody{Error: msg})
}

// Error maps err's kind to an HTTP status and writes it. Unclassified
// errors become 500s with a generic body; the detail goes to the log,
// not the client.
func Error(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch apperr.KindOf(err) {
	case apperr.NotFound:
		status, msg = http.StatusNotFound, "not found"
	case apperr.Unauthorized, apperr.AuthRejected:
		status, msg = http.StatusUnauthorized, "unauthorized"
	case apperr.ValidationFailed:
		status, msg = http.StatusUnprocessableEntity, "validation failed"
	case apperr.StorageFailure:
		status, msg = http.StatusBadGateway, "storage unavailable"
	case apperr.PartialWriteImpossible:
		status, msg = http.StatusInternalServerError, "atomic write unavailable"
	case apperr.Timeout:
		status, msg = http.StatusGatewayTimeout, "timed out"
	}

	if status >= 500 {
		log.Error("request failed", zap.String("op", op), zap.Error(err))
	} else {
		log.Info("request rejected", zap.String("op", op), zap.Error(err))
	}
	JSON(w, status, errorBody{Error: msg})
}

// Decode reads a JSON request body into v, rejecting unknown fields.
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
