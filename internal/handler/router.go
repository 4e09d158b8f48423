package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"clinic-scheduling-api/internal/metrics"
	"clinic-scheduling-api/internal/middleware"
)

const maxBodyBytes = 1 << 20

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// RouterDeps collects what NewRouter wires together.
type RouterDeps struct {
	Auth       AuthService
	Scheduling Scheduler
	Logger     *slog.Logger

	// optional
	Metrics        *metrics.Collector
	MetricsHandler http.Handler
	ReadyChecks    []ReadyCheck
}

// NewRouter builds the HTTP API.
//
// Middleware order: Recovery → RequestID → Logging → Metrics → BodyLimit.
// /register and /login are open; /consultas requires x-access-token.
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := New(deps.Auth, deps.Scheduling)

	r := chi.NewRouter()
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Recurso não encontrado.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Método não permitido.")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readyHandler(deps.ReadyChecks))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Auth))

		r.Route("/consultas", func(r chi.Router) {
			r.Get("/", h.ListAppointments)
			r.Post("/", h.CreateAppointment)
			r.Get("/paciente/{name}", h.FindByPatient)
			r.Get("/medico/{name}", h.FindByDoctor)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetAppointment)
				r.Put("/", h.UpdateAppointment)
				r.Delete("/", h.DeleteAppointment)
			})
		})
	})

	return r
}

func readyHandler(checks []ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var failures []string
		for _, c := range checks {
			if c.Check == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := c.Check(ctx)
			cancel()
			if err != nil {
				failures = append(failures, c.Name+": "+err.Error())
			}
		}
		if len(failures) > 0 {
			slog.WarnContext(r.Context(), "readiness check failed", slog.String("failures", strings.Join(failures, "; ")))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.Join(failures, "; ")))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
