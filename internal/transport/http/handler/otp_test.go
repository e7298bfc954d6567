package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-otp-api/internal/application/otp"
	"github.com/go-otp-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockOTPSvc struct{ mock.Mock }

func (m *mockOTPSvc) Issue(ctx context.Context, recipient string, channel domain.Channel, subject string) (string, error) {
	args := m.Called(ctx, recipient, channel, subject)
	return args.String(0), args.Error(1)
}

func (m *mockOTPSvc) Verify(ctx context.Context, verificationID, code string) (*otp.VerifyResult, error) {
	args := m.Called(ctx, verificationID, code)
	if r, _ := args.Get(0).(*otp.VerifyResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOTPSvc) Status(ctx context.Context, verificationID string) (*otp.StatusResult, error) {
	args := m.Called(ctx, verificationID)
	if r, _ := args.Get(0).(*otp.StatusResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOTPSvc) CanIssue(ctx context.Context, recipient string) (bool, error) {
	args := m.Called(ctx, recipient)
	return args.Bool(0), args.Error(1)
}

// --- helpers ---

func newOTPRouter(svc otp.Service) http.Handler {
	h := NewOTPHandler(svc, nil, 5*time.Minute)
	r := chi.NewRouter()
	r.Post("/otp/generate", h.Generate)
	r.Post("/otp/verify", h.Verify)
	r.Get("/otp/status/{verificationID}", h.Status)
	r.Get("/otp/can-generate", h.CanGenerate)
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Generate ---

func TestGenerate_Success(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Issue", mock.Anything, "a@b.com", domain.ChannelEmail, "").Return("vid-1", nil)

	rec := postJSON(t, newOTPRouter(svc), "/otp/generate", map[string]string{
		"recipient": "a@b.com",
		"channel":   "email",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var env GenerateEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "vid-1", env.VerificationID)
	assert.Equal(t, 300, env.ExpiresIn)
	svc.AssertExpectations(t)
}

func TestGenerate_InvalidEmail(t *testing.T) {
	svc := &mockOTPSvc{}

	rec := postJSON(t, newOTPRouter(svc), "/otp/generate", map[string]string{
		"recipient": "not-an-email",
		"channel":   "email",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var env ValidationEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Len(t, env.Fields, 1)
	assert.Equal(t, "recipient", env.Fields[0].Field)
	svc.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_UnknownChannel(t *testing.T) {
	svc := &mockOTPSvc{}

	rec := postJSON(t, newOTPRouter(svc), "/otp/generate", map[string]string{
		"recipient": "a@b.com",
		"channel":   "pigeon",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGenerate_MalformedBody(t *testing.T) {
	svc := &mockOTPSvc{}
	req := httptest.NewRequest(http.MethodPost, "/otp/generate", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	newOTPRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate_Throttled(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Issue", mock.Anything, "a@b.com", domain.ChannelEmail, "").
		Return("", domain.ErrThrottled)

	rec := postJSON(t, newOTPRouter(svc), "/otp/generate", map[string]string{
		"recipient": "a@b.com",
		"channel":   "email",
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGenerate_DeliveryFailure(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Issue", mock.Anything, "+14155552671", domain.ChannelSMS, "").
		Return("", domain.ErrDeliveryFailed)

	rec := postJSON(t, newOTPRouter(svc), "/otp/generate", map[string]string{
		"recipient": "+14155552671",
		"channel":   "sms",
	})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// --- Verify ---

func TestVerify_Success(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Verify", mock.Anything, "vid-1", "482913").Return(&otp.VerifyResult{
		Recipient: "a@b.com", Channel: domain.ChannelEmail, Verified: true,
	}, nil)

	rec := postJSON(t, newOTPRouter(svc), "/otp/verify", map[string]string{
		"verification_id": "vid-1",
		"code":            "482913",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	var env VerifyEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.True(t, env.Verified)
	assert.Equal(t, "a@b.com", env.Recipient)
	assert.Empty(t, env.ProofToken)
}

func TestVerify_IncorrectCode(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Verify", mock.Anything, "vid-1", "000000").Return(nil, domain.ErrIncorrectCode)

	rec := postJSON(t, newOTPRouter(svc), "/otp/verify", map[string]string{
		"verification_id": "vid-1",
		"code":            "000000",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerify_ExpiredOrUnknown(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Verify", mock.Anything, "vid-1", "482913").Return(nil, domain.ErrInvalidOrExpired)

	rec := postJSON(t, newOTPRouter(svc), "/otp/verify", map[string]string{
		"verification_id": "vid-1",
		"code":            "482913",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerify_NonNumericCode(t *testing.T) {
	svc := &mockOTPSvc{}

	rec := postJSON(t, newOTPRouter(svc), "/otp/verify", map[string]string{
		"verification_id": "vid-1",
		"code":            "12ab56",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	svc.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_MissingVerificationID(t *testing.T) {
	svc := &mockOTPSvc{}

	rec := postJSON(t, newOTPRouter(svc), "/otp/verify", map[string]string{
		"code": "482913",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// --- Status ---

func TestStatus_Found(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Status", mock.Anything, "vid-1").Return(&otp.StatusResult{
		Exists: true, ExpiresIn: 4 * time.Minute, Verified: false,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/otp/status/vid-1", nil)
	rec := httptest.NewRecorder()
	newOTPRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env StatusEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.True(t, env.Exists)
	assert.Equal(t, 240, env.ExpiresIn)
	assert.False(t, env.Verified)
}

func TestStatus_Missing(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Status", mock.Anything, "vid-1").Return(&otp.StatusResult{Exists: false}, nil)

	req := httptest.NewRequest(http.MethodGet, "/otp/status/vid-1", nil)
	rec := httptest.NewRecorder()
	newOTPRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env StatusEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.False(t, env.Exists)
}

func TestStatus_BackendError(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Status", mock.Anything, "vid-1").Return(nil, errors.New("redis down"))

	req := httptest.NewRequest(http.MethodGet, "/otp/status/vid-1", nil)
	rec := httptest.NewRecorder()
	newOTPRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// --- CanGenerate ---

func TestCanGenerate_Allowed(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("CanIssue", mock.Anything, "a@b.com").Return(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/otp/can-generate?recipient=a@b.com", nil)
	rec := httptest.NewRecorder()
	newOTPRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env CanGenerateEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.True(t, env.CanGenerate)
}

func TestCanGenerate_Throttled(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("CanIssue", mock.Anything, "a@b.com").Return(false, nil)

	req := httptest.NewRequest(http.MethodGet, "/otp/can-generate?recipient=a@b.com", nil)
	rec := httptest.NewRecorder()
	newOTPRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env CanGenerateEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.False(t, env.CanGenerate)
}

func TestCanGenerate_MissingRecipient(t *testing.T) {
	svc := &mockOTPSvc{}

	req := httptest.NewRequest(http.MethodGet, "/otp/can-generate", nil)
	rec := httptest.NewRecorder()
	newOTPRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "CanIssue", mock.Anything, mock.Anything)
}
