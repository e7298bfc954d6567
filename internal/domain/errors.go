package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	// ErrInvalidLength means the requested OTP length is outside [4,10].
	// Config validation catches this at startup; it should never surface at runtime.
	ErrInvalidLength = errors.New("invalid otp length")

	// ErrThrottled means the recipient already has the maximum number of
	// active (unverified, unexpired) codes.
	ErrThrottled = errors.New("too many active otp requests")

	// ErrDeliveryFailed means the channel provider reported a send failure.
	// No state is created when delivery fails.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrInvalidOrExpired means the verification id is unknown, already
	// consumed, or timed out of the cache.
	ErrInvalidOrExpired = errors.New("invalid or expired verification id")

	// ErrIncorrectCode means the presented code did not match. The cached
	// entry is left in place so the caller may retry.
	ErrIncorrectCode = errors.New("incorrect otp")

	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)
