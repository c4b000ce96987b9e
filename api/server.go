/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zerolog)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend
  5. Auth:       Principal on every /api route, admin role on admin routes

ROUTE GROUPS:
  /api/vendors/*                 Vendor master data
  /api/expenses/*                Expense workflow
  /api/offices/{id}/petty-cash/* Petty-cash ledgers
  /api/admin/*                   Admin operations
  /healthz                       Liveness (no auth)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Principal resolution and role gate
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterOptions carries the wiring decisions made from configuration.
type RouterOptions struct {
	Auth        *Authenticator
	CORSOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if opts.Auth == nil {
		opts.Auth = NewAuthenticator("")
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(opts.Auth.Middleware)

		// Vendor routes
		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", h.ListVendors)
			r.With(RequireRole(RoleAdmin)).Post("/", h.CreateVendor)
			r.Get("/{id}", h.GetVendor)
		})

		// Expense routes
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
			r.Post("/preview", h.PreviewExpense)
			r.Get("/{id}", h.GetExpense)
			r.Put("/{id}", h.EditExpense)
			r.Post("/{id}/submit", h.SubmitExpense)
			r.Post("/{id}/advance", h.AdvanceExpense)
			r.Post("/{id}/reject", h.RejectExpense)
			r.Get("/{id}/visibility", h.GetVisibility)
			r.Get("/{id}/history", h.GetHistory)
		})

		// Petty-cash routes
		r.Route("/offices/{officeID}/petty-cash", func(r chi.Router) {
			r.Post("/", h.RecordTransaction)
			r.Get("/{month}", h.GetLedger)
			r.Get("/{month}/export", h.ExportLedger)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Post("/petty-cash/close", h.CloseMonths)
		})
	})

	return r
}

// requestLogger logs one line per request with zerolog.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("http request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
