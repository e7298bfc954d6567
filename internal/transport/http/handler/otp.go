package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-otp-api/internal/application/otp"
	"github.com/go-otp-api/internal/domain"
	jwtinfra "github.com/go-otp-api/internal/infrastructure/jwt"
	"github.com/go-otp-api/internal/pkg/validate"
)

// OTPHandler handles the OTP lifecycle endpoints.
type OTPHandler struct {
	svc      otp.Service
	proof    *jwtinfra.Provider
	cacheTTL time.Duration
}

// NewOTPHandler builds the handler. proof may be nil, in which case verify
// responses carry no proof token. cacheTTL is echoed back to clients as the
// advisory expires_in; the authoritative TTL lives with the cached entry.
func NewOTPHandler(svc otp.Service, proof *jwtinfra.Provider, cacheTTL time.Duration) *OTPHandler {
	return &OTPHandler{svc: svc, proof: proof, cacheTTL: cacheTTL}
}

func (h *OTPHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Recipient string `json:"recipient"`
		Channel   string `json:"channel"`
		Subject   string `json:"subject"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if verrs := validate.GenerateRequest(body.Recipient, domain.Channel(body.Channel)); len(verrs) > 0 {
		writeValidation(w, verrs)
		return
	}

	verificationID, err := h.svc.Issue(r.Context(), body.Recipient, domain.Channel(body.Channel), body.Subject)
	if err != nil {
		httpError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, GenerateEnvelope{
		VerificationID: verificationID,
		ExpiresIn:      int(h.cacheTTL.Seconds()),
		Message:        "code sent",
	})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VerificationID string `json:"verification_id"`
		Code           string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if verrs := validate.VerifyRequest(body.VerificationID, body.Code); len(verrs) > 0 {
		writeValidation(w, verrs)
		return
	}

	res, err := h.svc.Verify(r.Context(), body.VerificationID, body.Code)
	if err != nil {
		httpError(w, err)
		return
	}

	env := VerifyEnvelope{
		Verified:  res.Verified,
		Recipient: res.Recipient,
		Message:   "verification successful",
	}
	if h.proof != nil {
		if token, err := h.proof.Sign(res.Recipient, res.Channel, body.VerificationID); err == nil {
			env.ProofToken = token
		}
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *OTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	verificationID := chi.URLParam(r, "verificationID")
	if verificationID == "" {
		writeError(w, http.StatusBadRequest, "verification id is required")
		return
	}

	st, err := h.svc.Status(r.Context(), verificationID)
	if err != nil {
		httpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusEnvelope{
		Exists:    st.Exists,
		ExpiresIn: int(st.ExpiresIn.Seconds()),
		Verified:  st.Verified,
	})
}

func (h *OTPHandler) CanGenerate(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	if recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient query parameter is required")
		return
	}

	ok, err := h.svc.CanIssue(r.Context(), recipient)
	if err != nil {
		httpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CanGenerateEnvelope{CanGenerate: ok})
}
