package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/obs"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/service"
)

const tokenCookieName = "__ecnc_work_order_manager_token"

type Handler struct {
	validate     *validator.Validate
	config       *config.Config
	services     *service.Service
	translator   ut.Translator
	loginLimiter *ipRateLimiter

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, svc *service.Service) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:     validate,
		config:       cfg,
		services:     svc,
		translator:   trans,
		loginLimiter: newIPRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	if h.config.RateLimit.TrustProxy {
		h.Mux.Use(middleware.RealIP)
	}
	h.Mux.Use(h.requestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(obs.Instrument)
	h.Mux.Use(h.recoverer)

	h.Mux.Handle("/metrics", obs.Handler())

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.With(h.rateLimit).Post("/login", h.Login)
		r.With(h.rateLimit).Post("/enroll", h.Enroll)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Get("/me", h.GetMyInfo)

		r.Route("/companies", func(r chi.Router) {
			r.Use(h.RequiredLevel(domain.LevelSystemAdmin))
			r.Post("/", h.CreateCompany)
			r.Get("/", h.GetAllCompanies)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetCompany)
				r.Patch("/", h.UpdateCompany)
				r.Delete("/", h.DeleteCompany)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequiredLevel(domain.LevelManager))
			r.Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetUserInfo)
				r.Patch("/", h.UpdateUser)
			})
		})

		r.Route("/work-orders", func(r chi.Router) {
			r.Post("/", h.CreateWorkOrder)
			r.Get("/", h.GetAllWorkOrders)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetWorkOrder)
				r.With(h.RequiredLevel(domain.LevelSupervisor)).Delete("/", h.DeleteWorkOrder)
				r.Get("/history", h.GetWorkOrderHistory)
				r.Route("/participants", func(r chi.Router) {
					r.Get("/", h.GetWorkOrderParticipants)
					r.With(h.RequiredLevel(domain.LevelSupervisor)).Post("/", h.AddWorkOrderParticipant)
					r.With(h.RequiredLevel(domain.LevelSupervisor)).Delete("/{participantId}", h.RemoveWorkOrderParticipant)
				})
			})
		})
	})
}
