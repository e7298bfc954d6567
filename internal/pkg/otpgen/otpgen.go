package otpgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/go-otp-api/internal/config"
	"github.com/go-otp-api/internal/domain"
	"github.com/google/uuid"
)

// Code generates a cryptographically random numeric code of exactly length
// digits. The value is drawn uniformly from [10^(length-1), 10^length - 1].
func Code(length int) (string, error) {
	if length < config.MinOTPLength || length > config.MaxOTPLength {
		return "", fmt.Errorf("otp length %d outside [%d,%d]: %w",
			length, config.MinOTPLength, config.MaxOTPLength, domain.ErrInvalidLength)
	}

	min := pow10(length - 1)
	max := min*10 - 1

	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+min, 10), nil
}

// VerificationID returns an unguessable opaque identifier (UUIDv4, 122
// random bits) safe to hand back to callers and to use as a cache key.
func VerificationID() string {
	return uuid.NewString()
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
