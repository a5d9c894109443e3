package http

import (
	"net/http"

	"github.com/go-account-api/internal/application/session"
	"github.com/go-account-api/internal/application/user"
	"github.com/go-account-api/internal/application/verification"
	"github.com/go-account-api/internal/config"
	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/transport/http/handler"
	appmiddleware "github.com/go-account-api/internal/transport/http/middleware"
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
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var authMw, optionalAuthMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider, cfg.AuthCookieName)
		optionalAuthMw = appmiddleware.OptionalAuth(deps.JWTProvider, cfg.AuthCookieName)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
		optionalAuthMw = authMw
	}

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	notifier := verification.NewNotifier(deps.Mailer, deps.SMSSender, deps.UserRepo)
	verificationSvc := verification.NewService(verification.ServiceDeps{
		VerificationRepo: deps.VerificationRepo,
		UserRepo:         deps.UserRepo,
		Notifier:         notifier,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		VerificationSvc: verificationSvc,
	})
	sessionDeps := session.ServiceDeps{
		SessionRepo: deps.SessionRepo,
		UserRepo:    deps.UserRepo,
		RefreshDur:  cfg.RefreshTokenDur,
	}
	// A typed-nil provider must not end up inside the signer interface, or
	// the nil check in the session service never fires.
	if deps.JWTProvider != nil {
		sessionDeps.Signer = deps.JWTProvider
	}
	sessionSvc := session.NewService(sessionDeps)

	activityMw := appmiddleware.Activity(func(req *http.Request, userID string) error {
		return userSvc.TouchActivity(req.Context(), userID)
	})

	healthH := handler.NewHealthHandler()
	verificationH := handler.NewVerificationHandler(verificationSvc)
	userH := handler.NewUserHandler(userSvc)
	sessionH := handler.NewSessionHandler(sessionSvc, cfg.AuthCookieName, cfg.JWTExpiry, cfg.AppEnv != "development")

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit, optionalAuthMw).Post("/verification/request", verificationH.Request)
		r.With(sensitiveRL.Limit).Post("/verification/confirm", verificationH.Confirm)
		r.With(sensitiveRL.Limit).Post("/users", userH.Signup)
		r.With(sensitiveRL.Limit).Post("/password-reset", userH.ResetPassword)
		r.Get("/users/{id}", userH.Get)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Use(activityMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/me", userH.Me)
			r.Patch("/users/me", userH.UpdateMe)
			r.Post("/users/me/password", userH.ChangePassword)
			r.Post("/users/me/email", userH.ChangeEmail)
			r.Post("/users/me/phone", userH.ChangePhone)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", userH.List)
				r.Delete("/users/{id}", userH.Delete)
			})
		})
	})

	return r
}
