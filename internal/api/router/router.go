package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicbook/clinic-booking/internal/appointments"
	"github.com/clinicbook/clinic-booking/internal/blockedslots"
	"github.com/clinicbook/clinic-booking/internal/compliance"
	"github.com/clinicbook/clinic-booking/internal/export"
	"github.com/clinicbook/clinic-booking/internal/http/handlers"
	httpmiddleware "github.com/clinicbook/clinic-booking/internal/http/middleware"
	"github.com/clinicbook/clinic-booking/internal/settings"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Health             *handlers.HealthHandler
	AdminLogin         *handlers.AdminLoginHandler
	PublicAppointments *appointments.PublicHandler
	AdminAppointments  *appointments.AdminHandler
	BlockedSlots       *blockedslots.Handler
	Settings           *settings.Handler
	Export             *export.Handler
	Audit              *compliance.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	AdminAuth          httpmiddleware.AdminAuthConfig

	// BookingLimiter throttles POST /api/appointments per client IP (optional).
	BookingLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	health := cfg.Health
	if health == nil {
		health = handlers.NewHealthHandler(nil, cfg.Logger)
	}
	r.Get("/health", health.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public booking endpoints
	if cfg.PublicAppointments != nil {
		r.Route("/api/appointments", func(public chi.Router) {
			var limit []func(http.Handler) http.Handler
			if cfg.BookingLimiter != nil {
				limit = append(limit, cfg.BookingLimiter.Middleware)
			}
			cfg.PublicAppointments.Register(public, limit...)
		})
	}

	r.Route("/api/admin", func(admin chi.Router) {
		// The booking page reads branding and hours without credentials.
		if cfg.AdminLogin != nil {
			admin.Post("/login", cfg.AdminLogin.Login)
		}
		if cfg.Settings != nil {
			admin.Get("/settings", cfg.Settings.GetSettings)
		}

		admin.Group(func(protected chi.Router) {
			protected.Use(httpmiddleware.AdminAuth(cfg.AdminAuth))
			if cfg.Settings != nil {
				protected.Put("/settings", cfg.Settings.UpdateSettings)
			}
			if cfg.Audit != nil {
				protected.Get("/audit-events", cfg.Audit.ListEvents)
			}
			if cfg.BlockedSlots != nil {
				protected.Mount("/blocked-slots", cfg.BlockedSlots.Routes())
			}
			protected.Route("/appointments", func(appts chi.Router) {
				if cfg.Export != nil {
					cfg.Export.Register(appts)
				}
				if cfg.AdminAppointments != nil {
					cfg.AdminAppointments.Register(appts)
				}
			})
		})
	})

	return r
}
