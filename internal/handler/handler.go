package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/auth"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/validation"
)

type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*domain.User, auth.Session, error)
	Login(ctx context.Context, in auth.LoginInput) (*domain.User, auth.Session, error)
	UpdateProfile(ctx context.Context, userID int64, in auth.ProfileInput) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID int64, in auth.PasswordInput) (*domain.User, auth.Session, error)
	ResetPassword(ctx context.Context, email, password string) (*domain.User, error)
	Lookup(ctx context.Context, email string) (*domain.User, error)
}

type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*domain.User, error)
	Revoke() auth.Session
}

type MailPublisher interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

type OTPStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
	// Incr 返回自增后的计数，计数第一次出现时设置过期时间
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	translator ut.Translator
	accounts   AuthService
	sessions   SessionVerifier
	mailer     MailPublisher
	otp        OTPStore

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, authService AuthService, sessions SessionVerifier, mailer MailPublisher, otp OTPStore) (*Handler, error) {
	validate, trans, err := validation.New()
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		translator: trans,
		accounts:   authService,
		sessions:   sessions,
		mailer:     mailer,
		otp:        otp,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Handle("/metrics", promhttp.Handler())

	h.Mux.Route("/api/v1/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})

		// 以下 API 必须要在登录后才允许调用
		r.Group(func(r chi.Router) {
			r.Use(h.auth)
			r.Get("/getuser", h.GetMyInfo)
			r.Put("/update/profile", h.UpdateProfile)
			r.Put("/update/password", h.UpdatePassword)
			r.With(h.RequiredRole(domain.RoleJobSeeker)).Get("/resume", h.GetMyResume)
		})
	})
}
