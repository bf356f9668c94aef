package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-platform/internal/appointment"
	"github.com/hackgods/clinic-appointment-platform/internal/availability"
	"github.com/hackgods/clinic-appointment-platform/internal/records"
	"github.com/hackgods/clinic-appointment-platform/internal/specialist"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Specialists  *specialist.Service
	Availability *availability.Resolver
	Records      records.Store
	Loader       *records.Loader
	Logger       zerolog.Logger
	Gatherer     prometheus.Gatherer
	Location     *time.Location
	Postgres     PingFunc
	Redis        PingFunc
	Env          string
	Version      string
}

type handlers struct {
	appointments *appointment.Service
	specialists  *specialist.Service
	availability *availability.Resolver
	records      records.Store
	loader       *records.Loader
	logger       zerolog.Logger
	location     *time.Location
	now          func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := &handlers{
		appointments: cfg.Appointments,
		specialists:  cfg.Specialists,
		availability: cfg.Availability,
		records:      cfg.Records,
		loader:       cfg.Loader,
		logger:       cfg.Logger,
		location:     cfg.Location,
		now:          time.Now,
	}
	if h.location == nil {
		h.location = time.UTC
	}
	if h.loader == nil {
		h.loader = records.NewLoader(cfg.Records, records.DefaultFetchConcurrency, nil)
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/specialists", h.listSpecialists)
	r.Get("/specialists/{id}", h.getSpecialist)
	r.Get("/specialists/{id}/availability", h.getAvailability)

	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware)

		r.Put("/specialists/{id}/schedule", h.editSchedule)

		r.Post("/appointments", h.createAppointment)
		r.Get("/appointments", h.listAppointments)
		r.Get("/appointments/{id}", h.getAppointment)
		r.Post("/appointments/{id}/accept", h.acceptAppointment)
		r.Post("/appointments/{id}/reject", h.rejectAppointment)
		r.Post("/appointments/{id}/cancel", h.cancelAppointment)
		r.Post("/appointments/{id}/complete", h.completeAppointment)
		r.Post("/appointments/{id}/specialist-review", h.attachSpecialistReview)
		r.Post("/appointments/{id}/survey", h.attachSurvey)
	})

	return r
}
