package http

import (
	"github.com/go-otp-api/internal/application/otp"
	jwtinfra "github.com/go-otp-api/internal/infrastructure/jwt"
)

// Deps holds all infrastructure dependencies for the router. Everything is
// injected; nothing in the transport layer constructs its own clients.
type Deps struct {
	Records otp.RecordStore
	Cache   otp.CodeCache
	Mailer  otp.EmailSender
	SMS     otp.SMSSender

	// ProofProvider is optional. When nil the verify response omits the
	// proof token.
	ProofProvider *jwtinfra.Provider
}
