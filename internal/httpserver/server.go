package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/config"
	gmiddleware "github.com/deadlock-api/gatekeeper/internal/middleware"
	"github.com/deadlock-api/gatekeeper/internal/version"
	"github.com/deadlock-api/gatekeeper/internal/widgetversion"
)

// Server holds the top-level HTTP server: global middleware, health and
// metrics endpoints, and a bare chi.Mux domain handlers are mounted onto.
type Server struct {
	Router      *chi.Mux
	Logger      *slog.Logger
	AnalyticsDB *pgxpool.Pool
	MetadataDB  *pgxpool.Pool
	Redis       *redis.Client
	Metrics     *prometheus.Registry
	startedAt   time.Time
}

// NewServer creates an HTTP server with the shared middleware stack and
// health/metrics endpoints. Domain handlers (internal/router) are mounted
// onto Server.Router by the caller.
func NewServer(cfg *config.Config, logger *slog.Logger, analyticsDB, metadataDB *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, versions *widgetversion.Set) *Server {
	s := &Server{
		Router:      chi.NewRouter(),
		Logger:      logger,
		AnalyticsDB: analyticsDB,
		MetadataDB:  metadataDB,
		Redis:       rdb,
		Metrics:     metricsReg,
		startedAt:   time.Now(),
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.Router.Use(gmiddleware.WidgetVersion(versions))

	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/readyz", s.handleReadyz)
	s.Router.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.AnalyticsDB.Ping(ctx); err != nil {
		s.Logger.Error("readiness check: analytics store ping failed", "error", err)
		RespondError(w, s.Logger, apierr.ServiceUnavailable("analytics store not ready", err))
		return
	}
	if err := s.MetadataDB.Ping(ctx); err != nil {
		s.Logger.Error("readiness check: metadata store ping failed", "error", err)
		RespondError(w, s.Logger, apierr.ServiceUnavailable("metadata store not ready", err))
		return
	}
	if err := s.Redis.Ping(ctx).Err(); err != nil {
		s.Logger.Error("readiness check: redis ping failed", "error", err)
		RespondError(w, s.Logger, apierr.ServiceUnavailable("redis not ready", err))
		return
	}

	Respond(w, http.StatusOK, map[string]string{"status": "ready"})
}
