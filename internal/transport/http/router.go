package http

import (
	"net/http"

	"github.com/contactbook-api/internal/application/auth"
	"github.com/contactbook-api/internal/application/contact"
	"github.com/contactbook-api/internal/application/otp"
	"github.com/contactbook-api/internal/application/spamcheck"
	"github.com/contactbook-api/internal/config"
	"github.com/contactbook-api/internal/transport/http/handler"
	appmiddleware "github.com/contactbook-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider, deps.UserRepo)

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpMgr := otp.NewManager(deps.OtpRepo, cfg.OTP)
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:   deps.UserRepo,
		OtpManager: otpMgr,
		Mailer:     deps.Mailer,
		SMSSender:  deps.SMSSender,
		Tokens:     deps.JWTProvider,
		OTPExpiry:  cfg.OTP.Expiry,
	})
	contactSvc := contact.NewService(deps.ContactRepo)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	contactH := handler.NewContactHandler(contactSvc)
	spamH := handler.NewSpamHandler(spamcheck.NewChecker())

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/signup", authH.Signup)
		r.With(sensitiveRL.Limit).Post("/auth/verify-otp", authH.VerifyOTP)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/forgot-password", authH.ForgotPassword)
		r.With(sensitiveRL.Limit).Post("/auth/reset-password", authH.ResetPassword)
		r.Post("/spam/check", spamH.Check)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/contacts", contactH.Create)
			r.Get("/contacts", contactH.List)
			r.Put("/contacts/{id}", contactH.Update)
			r.Delete("/contacts/{id}", contactH.Delete)
		})
	})

	return r
}
