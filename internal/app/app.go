// Package app wires every component into a runnable process: load config,
// connect to infrastructure, run migrations, and start the selected mode.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/deadlock-api/gatekeeper/internal/analytics"
	"github.com/deadlock-api/gatekeeper/internal/artifact"
	"github.com/deadlock-api/gatekeeper/internal/config"
	"github.com/deadlock-api/gatekeeper/internal/custommatch"
	"github.com/deadlock-api/gatekeeper/internal/featureflag"
	"github.com/deadlock-api/gatekeeper/internal/httpserver"
	"github.com/deadlock-api/gatekeeper/internal/objectstore"
	"github.com/deadlock-api/gatekeeper/internal/platform"
	"github.com/deadlock-api/gatekeeper/internal/privacy"
	"github.com/deadlock-api/gatekeeper/internal/proxyclient"
	"github.com/deadlock-api/gatekeeper/internal/ratelimit"
	"github.com/deadlock-api/gatekeeper/internal/router"
	"github.com/deadlock-api/gatekeeper/internal/spectator"
	"github.com/deadlock-api/gatekeeper/internal/telemetry"
	"github.com/deadlock-api/gatekeeper/internal/widgetversion"
)

// Run is the main application entry point: it reads config, connects to
// infrastructure, and starts the selected mode (api or worker).
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting gatekeeper", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	shutdownTracer, err := telemetry.InitTracer(ctx, "gatekeeper", cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	analyticsDB, err := platform.NewPostgresPool(ctx, cfg.AnalyticsDSN)
	if err != nil {
		return fmt.Errorf("connecting to analytics store: %w", err)
	}
	defer analyticsDB.Close()

	metadataDB, err := platform.NewPostgresPool(ctx, cfg.MetadataDSN)
	if err != nil {
		return fmt.Errorf("connecting to metadata store: %w", err)
	}
	defer metadataDB.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunAnalyticsMigrations(cfg.AnalyticsDSN, cfg.MigrationsAnalyticsDir); err != nil {
		return fmt.Errorf("running analytics migrations: %w", err)
	}
	logger.Info("analytics migrations applied")

	if err := platform.RunMetadataMigrations(cfg.MetadataDSN, cfg.MigrationsMetadataDir); err != nil {
		return fmt.Errorf("running metadata migrations: %w", err)
	}
	logger.Info("metadata migrations applied")

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, analyticsDB, metadataDB, rdb, metricsReg)
	case "worker":
		return runWorker(ctx, logger, rdb)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func runAPI(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	analyticsDB, metadataDB *pgxpool.Pool,
	rdb *redis.Client,
	metricsReg *prometheus.Registry,
) error {
	primaryStore, err := objectstore.New(ctx, objectstore.Config{
		Endpoint:  cfg.PrimaryStoreEndpoint,
		Region:    cfg.PrimaryStoreRegion,
		Bucket:    cfg.PrimaryStoreBucket,
		AccessKey: cfg.PrimaryStoreAccessKey,
		SecretKey: cfg.PrimaryStoreSecretKey,
	})
	if err != nil {
		return fmt.Errorf("connecting to primary object store: %w", err)
	}

	cacheStore, err := objectstore.New(ctx, objectstore.Config{
		Endpoint:  cfg.CacheStoreEndpoint,
		Region:    cfg.CacheStoreRegion,
		Bucket:    cfg.CacheStoreBucket,
		AccessKey: cfg.CacheStoreAccessKey,
		SecretKey: cfg.CacheStoreSecretKey,
	})
	if err != nil {
		return fmt.Errorf("connecting to cache object store: %w", err)
	}

	proxy := proxyclient.New(cfg.ProxyURL, cfg.ProxyBearerToken)

	flags, err := featureflag.Load(cfg.FeatureFlagsPath)
	if err != nil {
		return fmt.Errorf("loading feature flags: %w", err)
	}

	versions, err := widgetversion.Load(cfg.WidgetVersionPath)
	if err != nil {
		return fmt.Errorf("loading widget version config: %w", err)
	}

	rateLimiter := ratelimit.New(rdb, metadataDB, logger, cfg.EmergencyMode)

	artifactResolver := artifact.NewResolver(analyticsDB, proxy, rateLimiter, cacheStore, primaryStore, logger)
	spectatorEngine := spectator.NewEngine(analyticsDB, proxy, cfg.DemoBroadcastHost, cfg.GameClientVersion, logger)
	customMatchMgr := custommatch.NewManager(rdb, proxy, logger)
	analyticsSvc := analytics.New(analyticsDB, proxy)
	privacyGuard := privacy.New(metadataDB, analyticsDB)

	srv := httpserver.NewServer(cfg, logger, analyticsDB, metadataDB, rdb, metricsReg, versions)
	srv.Router.Mount("/v1", router.New(&router.Deps{
		Logger:      logger,
		Artifact:    artifactResolver,
		Spectator:   spectatorEngine,
		CustomMatch: customMatchMgr,
		Analytics:   analyticsSvc,
		Privacy:     privacyGuard,
		RateLimiter: rateLimiter,
		Flags:       flags,
		InternalKey: cfg.InternalSharedSecret,
	}))

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// runWorker holds the process open until ctx is canceled. It runs no
// workload of its own: the only out-of-band work, the custom-match
// auto-leave timers, runs in-process wherever a custommatch.Manager.Create
// call starts one, which is the api process.
func runWorker(ctx context.Context, logger *slog.Logger, rdb *redis.Client) error {
	logger.Info("worker started")
	<-ctx.Done()
	logger.Info("worker shutting down")
	return nil
}
