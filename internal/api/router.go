package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func NewRouter(app *App) http.Handler {
	if app.Logger == nil {
		app.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(app.Logger, app.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Get("/health", app.HealthHandler)
	if app.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(app.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/participants", app.CreateParticipantHandler)
		r.Get("/participants/{id}", app.GetParticipantHandler)
		r.Get("/participants/{id}/next-video", app.NextVideoHandler)
		r.Get("/participants/{id}/responses", app.ListParticipantResponsesHandler)

		r.Post("/responses", app.CreateResponseHandler)
		r.Get("/responses/export", app.ExportResponsesHandler)

		r.Get("/videos", app.ListVideosHandler)
	})

	r.Get("/videos/{filename}", app.StreamVideoHandler)
	r.Head("/videos/{filename}", app.StreamVideoHandler)

	return r
}
