package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/internal/availability"
	"github.com/wolfman30/vetcare-platform/internal/bookings"
	"github.com/wolfman30/vetcare-platform/internal/dashboard"
	httpmiddleware "github.com/wolfman30/vetcare-platform/internal/http/middleware"
	"github.com/wolfman30/vetcare-platform/internal/notify"
	"github.com/wolfman30/vetcare-platform/internal/payments"
	"github.com/wolfman30/vetcare-platform/internal/pets"
	"github.com/wolfman30/vetcare-platform/internal/prescriptions"
	"github.com/wolfman30/vetcare-platform/internal/profiles"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger             *logging.Logger
	Profiles           *profiles.Handler
	Availability       *availability.Handler
	Bookings           *bookings.Handler
	Pets               *pets.Handler
	Prescriptions      *prescriptions.Handler
	Payments           *payments.Handler
	Dashboard          *dashboard.Handler
	Functions          *notify.FunctionsHandler
	MetricsHandler     http.Handler
	AuthSecret         string
	CORSAllowedOrigins []string
	RateLimiter        httpmiddleware.Limiter
	ReadinessChecks    map[string]ReadinessCheck
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", health)
	r.Get("/ready", ready(cfg.ReadinessChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
		}
		// Handlers enforce authentication themselves so public reads stay anonymous.
		api.Use(httpmiddleware.Authenticate(cfg.AuthSecret, false))

		if cfg.Functions != nil {
			api.Post("/functions/booking-confirmation", cfg.Functions.BookingConfirmation)
			api.Post("/functions/contact", cfg.Functions.Contact)
		}
		if cfg.Profiles != nil {
			api.Post("/profiles", cfg.Profiles.Register)
			api.Get("/profiles/me", cfg.Profiles.GetMe)
			api.Patch("/profiles/me", cfg.Profiles.UpdateMe)
		}

		api.Route("/vets", func(vets chi.Router) {
			if cfg.Profiles != nil {
				vets.Get("/", cfg.Profiles.ListVets)
				vets.Patch("/me", cfg.Profiles.UpdateMyVet)
				vets.Get("/{vetID}", cfg.Profiles.GetVet)
			}
			if cfg.Availability != nil {
				vets.Put("/me/availability", cfg.Availability.ReplaceMyRules)
				vets.Get("/{vetID}/availability", cfg.Availability.GetSlots)
				vets.Get("/{vetID}/availability/rules", cfg.Availability.GetRules)
			}
			if cfg.Payments != nil {
				vets.Get("/me/earnings", cfg.Payments.Earnings)
			}
		})

		if cfg.Pets != nil {
			api.Mount("/pets", cfg.Pets.Routes())
		}
		if cfg.Bookings != nil {
			api.Mount("/bookings", cfg.Bookings.Routes())
		}
		if cfg.Prescriptions != nil {
			api.Mount("/prescriptions", cfg.Prescriptions.Routes())
		}
		if cfg.Payments != nil {
			api.Post("/payments", cfg.Payments.Record)
		}

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.RequireRole(auth.RoleAdmin))
			if cfg.Profiles != nil {
				admin.Get("/vets", cfg.Profiles.AdminListVets)
				admin.Post("/vets/{vetID}/approve", cfg.Profiles.Approve)
				admin.Post("/vets/{vetID}/reject", cfg.Profiles.Reject)
			}
			if cfg.Bookings != nil {
				admin.Patch("/bookings/{bookingID}/status", cfg.Bookings.AdminSetStatus)
			}
			if cfg.Payments != nil {
				admin.Get("/transactions", cfg.Payments.List)
				admin.Get("/transactions/stats", cfg.Payments.Stats)
			}
			if cfg.Dashboard != nil {
				admin.Get("/dashboard", cfg.Dashboard.Overview)
			}
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func ready(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": results})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
