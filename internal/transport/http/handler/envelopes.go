package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-otp-api/internal/domain"
	"github.com/go-otp-api/internal/pkg/validate"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GenerateEnvelope wraps successful OTP generation responses.
type GenerateEnvelope struct {
	VerificationID string `json:"verification_id"`
	ExpiresIn      int    `json:"expires_in"`
	Message        string `json:"message,omitempty"`
}

// VerifyEnvelope wraps successful verification responses.
type VerifyEnvelope struct {
	Verified   bool   `json:"verified"`
	Recipient  string `json:"recipient"`
	ProofToken string `json:"proof_token,omitempty"`
	Message    string `json:"message,omitempty"`
}

// StatusEnvelope wraps verification status responses.
type StatusEnvelope struct {
	Exists    bool `json:"exists"`
	ExpiresIn int  `json:"expires_in"`
	Verified  bool `json:"verified"`
}

// CanGenerateEnvelope wraps throttle pre-check responses.
type CanGenerateEnvelope struct {
	CanGenerate bool `json:"can_generate"`
}

// ValidationEnvelope wraps structured input validation failures.
type ValidationEnvelope struct {
	Error  string                `json:"error"`
	Fields []validate.FieldError `json:"fields"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

func writeValidation(w http.ResponseWriter, verrs validate.Errors) {
	writeJSON(w, http.StatusUnprocessableEntity, ValidationEnvelope{
		Error:  "validation failed",
		Fields: verrs,
	})
}

// httpError maps domain errors to HTTP status codes. Unknown errors are
// reported as 503 so internals never leak to the caller.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidOrExpired):
		writeError(w, http.StatusUnauthorized, "invalid or expired verification")
	case errors.Is(err, domain.ErrIncorrectCode):
		writeError(w, http.StatusUnauthorized, "incorrect code")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrThrottled):
		writeError(w, http.StatusTooManyRequests, "too many active codes for this recipient")
	case errors.Is(err, domain.ErrDeliveryFailed):
		writeError(w, http.StatusServiceUnavailable, "code delivery failed")
	default:
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	}
}
