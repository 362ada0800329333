package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/openglide/skysearch/pkg/api"
	"github.com/openglide/skysearch/pkg/cache"
	"github.com/openglide/skysearch/pkg/config"
	"github.com/openglide/skysearch/pkg/entities"
	"github.com/openglide/skysearch/pkg/middleware"
	"github.com/openglide/skysearch/pkg/observability"
	"github.com/openglide/skysearch/pkg/search"
	"github.com/openglide/skysearch/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("skysearch stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	registry, err := loadRegistry(cfg.Search.KindsFile)
	if err != nil {
		return err
	}

	cm, err := storage.NewConnectionManager(cfg.Store.ConnectionConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to connect to entity store: %w", err)
	}
	if err := registry.CheckStore(ctx, cm.Primary()); err != nil {
		cm.Close()
		return err
	}
	logger.WithFields(map[string]interface{}{
		"driver":   cm.Dialect().Name,
		"kinds":    registry.Tags(),
		"replicas": len(cm.AllReplicas()),
	}).Info("Entity store ready")

	promRegistry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(promRegistry)
	}

	var redisClient *redis.Client
	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		var cacheOpts []cache.Option
		if metrics != nil {
			cacheOpts = append(cacheOpts, cache.WithRecorder(metrics))
		}
		if cfg.Cache.RedisURL != "" {
			redisClient, err = storage.NewRedisClient(ctx, cfg.Cache.RedisConfig())
			if err != nil {
				// The memory tier still serves; readiness reports the lost tier
				logger.WithError(err).Warn("Shared result cache unavailable, caching in memory only")
				redisClient = nil
			} else {
				cacheOpts = append(cacheOpts, cache.WithRedis(redisClient))
			}
		}
		resultCache = cache.New(&cache.Config{
			MaxEntries: cfg.Cache.L1Size,
			TTL:        cfg.Cache.TTL,
		}, cacheOpts...)
	}

	engine := search.NewEngine(cm, cm.Dialect(), registry,
		search.WithDefaultLimit(cfg.Search.DefaultLimit),
		search.WithMaxLimit(cfg.Search.MaxLimit),
	)
	serviceOpts := []search.ServiceOption{search.WithLogger(logger)}
	if metrics != nil {
		serviceOpts = append(serviceOpts, search.WithRecorder(metrics))
	}
	service := search.NewService(engine, search.NewEnricher(cm, cm.Dialect(), registry), serviceOpts...)

	apiOpts := []api.Option{api.WithLogger(logger)}
	if metrics != nil {
		apiOpts = append(apiOpts, api.WithMetrics(metrics))
	}
	if resultCache != nil {
		apiOpts = append(apiOpts, api.WithCache(resultCache))
	}
	if cfg.Observability.OTelEnabled {
		apiOpts = append(apiOpts, api.WithTracing("skysearch"))
	}
	if cfg.RateLimit.Enabled {
		apiOpts = append(apiOpts, api.WithRateLimit(newRateLimit(ctx, cfg.RateLimit, redisClient)))
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(service, apiOpts...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsRegistry *prometheus.Registry
	if metrics != nil {
		metricsRegistry = promRegistry
	}
	checker := observability.NewHealthChecker(cm.Primary(), redisClient).
		WithVersion(cfg.Observability.OTelServiceVersion)
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           api.NewHealthHandler(checker, metricsRegistry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	scheduler := cron.New()
	if metrics != nil {
		refresh := func() { refreshStoreGauges(ctx, logger, cm, registry, metrics) }
		if _, err := scheduler.AddFunc(cfg.Search.CountSchedule, refresh); err != nil {
			cm.Close()
			return fmt.Errorf("invalid count schedule %q: %w", cfg.Search.CountSchedule, err)
		}
		refresh()
	}
	scheduler.Start()

	cm.StartHealthCheckRoutine(ctx, 30*time.Second)

	serverErr := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		defer observability.RecoverPanic(logger, name)

		logger.Infof("Starting %s on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("%s failed: %w", name, err)
			cancel()
		}
	}
	go serve("search API", httpServer)
	go serve("health server", healthServer)

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(healthServer.Shutdown)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return cm.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	shutdownErr := shutdown.WaitForShutdown(ctx)

	select {
	case err := <-serverErr:
		return err
	default:
		return shutdownErr
	}
}

// newRateLimit shares limits through Redis when the cache tier is connected,
// keeping a local bucket for when Redis fails.
func newRateLimit(ctx context.Context, cfg config.RateLimitConfig, redisClient *redis.Client) *middleware.RateLimitMiddleware {
	limits := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.Requests,
		WindowDuration:    cfg.Window,
		BurstSize:         cfg.Burst,
	}

	local := middleware.NewRateLimiter(limits)
	local.StartCleanup(ctx)

	var opts []middleware.RateLimitOption
	if cfg.TrustProxyHeaders {
		opts = append(opts, middleware.WithTrustedProxyHeaders())
	}
	if redisClient == nil {
		return middleware.NewRateLimitMiddleware(local, opts...)
	}

	opts = append(opts, middleware.WithFallback(local))
	return middleware.NewRateLimitMiddleware(middleware.NewDistributedRateLimiter(redisClient, limits, ""), opts...)
}

// loadRegistry returns the kinds from path, or the built-in ones.
func loadRegistry(path string) (*entities.Registry, error) {
	if path == "" {
		return entities.Default(), nil
	}
	registry, err := entities.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load kinds from %s: %w", path, err)
	}
	return registry, nil
}

// refreshStoreGauges updates the per-kind entity counts and the pool gauges.
func refreshStoreGauges(ctx context.Context, logger *observability.Logger, cm *storage.ConnectionManager, registry *entities.Registry, metrics *observability.Metrics) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	metrics.RecordDBStats(cm.Stats().Primary)

	counts, err := registry.CountRows(ctx, cm.Primary())
	if err != nil {
		logger.WithError(err).Warn("Failed to refresh entity counts")
		return
	}
	metrics.SetEntityCounts(counts)
	logger.WithField("counts", counts).Debug("Entity counts refreshed")
}
