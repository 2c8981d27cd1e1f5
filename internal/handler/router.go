package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"portfolio-be/internal/container"
	"portfolio-be/internal/middleware"
)

// requestTimeout bounds every request, store round trips included
const requestTimeout = 15 * time.Second

// NewRouter configures the HTTP routes on top of c. throttle may be nil.
func NewRouter(c *container.Container, throttle *middleware.Throttle) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	// Setup middlewares
	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(requestTimeout))

	healthHandler := NewHealthHandler(c)
	visitHandler := NewVisitHandler(c.GetVisitService(), log, cfg.VisitCountTTL)
	contentHandler := NewContentHandler(c.GetContentService(), log)

	var throttleMiddleware func(http.Handler) http.Handler
	if throttle != nil {
		throttleMiddleware = throttle.Middleware
	}

	r.Get("/health", healthHandler.Check)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api", func(r chi.Router) {
		visitHandler.RegisterRoutes(r, throttleMiddleware)
		contentHandler.RegisterRoutes(r, middleware.AdminAuth(c.GetAuthService(), log))
	})

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	log.Info("Router configured successfully")
	return r
}
