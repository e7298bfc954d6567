package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-otp-api/internal/application/otp"
	"github.com/go-otp-api/internal/config"
	"github.com/go-otp-api/internal/transport/http/handler"
	appmiddleware "github.com/go-otp-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Client-Secret"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to the code-bearing endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otp.NewService(otp.ServiceDeps{
		Records: deps.Records,
		Cache:   deps.Cache,
		Mailer:  deps.Mailer,
		SMS:     deps.SMS,
		OTP:     cfg.OTP,
	})

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(otpSvc, deps.ProofProvider, cfg.OTP.CacheTTL)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Client-authenticated routes ──────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.ClientAuth(cfg.ClientSecretKey))

			r.With(sensitiveRL.Limit).Post("/otp/generate", otpH.Generate)
			r.With(sensitiveRL.Limit).Post("/otp/verify", otpH.Verify)
			r.Get("/otp/status/{verificationID}", otpH.Status)
			r.Get("/otp/can-generate", otpH.CanGenerate)
		})
	})

	return r
}
