// Package respond writes the JSON envelopes shared by the public and admin APIs.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/clinicbook/clinic-booking/internal/apperr"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// Envelope is the {success, data, message} shape returned by the booking API.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	// EmailError is set when a booking succeeded but its notification failed.
	EmailError *string `json:"emailError,omitempty"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a successful envelope around data.
func OK(w http.ResponseWriter, status int, data any, message string) {
	JSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error writes a failure envelope. Typed errors expose their message; anything else is
// logged and replaced by fallback so internals never reach the client.
func Error(w http.ResponseWriter, logger *logging.Logger, err error, fallback string) {
	status := StatusFor(err)
	message := apperr.MessageOf(err, fallback)
	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Error("request failed", "error", err, "kind", string(apperr.KindOf(err)))
		message = fallback
	}
	JSON(w, status, Envelope{Success: false, Message: message})
}

// DecodeJSON decodes the request body into dst, returning a validation error on bad input.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.Validation("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
