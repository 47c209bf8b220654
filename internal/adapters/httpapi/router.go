// Package httpapi expose l'état d'un run en cours (option --listen).
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/app"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

type Server struct {
	logger   zerolog.Logger
	settings *app.SettingsService
	tracker  *app.ProgressTracker
	limiter  *app.DynamicLimiter
	bus      ports.EventBus
}

// NewServer accepte des dépendances nil: les routes correspondantes ne sont pas montées.
func NewServer(logger zerolog.Logger, settings *app.SettingsService, tracker *app.ProgressTracker, limiter *app.DynamicLimiter, bus ports.EventBus) *Server {
	return &Server{logger: logger, settings: settings, tracker: tracker, limiter: limiter, bus: bus}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		// flux long: hors timeout
		if s.bus != nil {
			r.Get("/events", s.handleEvents)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))

			r.Get("/health", s.handleHealth)
			r.Get("/version", s.handleVersion)
			r.Get("/openapi.json", s.handleOpenAPI)
			if s.tracker != nil {
				r.Get("/progress", s.handleProgress)
			}
			if s.settings != nil {
				NewSettingsHandler(s.settings, func(updated domain.Settings) {
					s.logger.Info().Int("max_concurrent_downloads", updated.MaxConcurrentDownloads).Msg("settings updated")
				}).Routes(r)
			}
		})
	})

	return r
}
