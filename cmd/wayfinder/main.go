package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/waygrid/wayfinder/internal/directions"
	"github.com/waygrid/wayfinder/internal/geocoding"
	"github.com/waygrid/wayfinder/internal/graph"
	"github.com/waygrid/wayfinder/internal/isochrone"
	"github.com/waygrid/wayfinder/internal/matrix"
	"github.com/waygrid/wayfinder/internal/usage"
	"github.com/waygrid/wayfinder/pkg/cache"
	"github.com/waygrid/wayfinder/pkg/common"
	"github.com/waygrid/wayfinder/pkg/config"
	"github.com/waygrid/wayfinder/pkg/database"
	"github.com/waygrid/wayfinder/pkg/errors"
	"github.com/waygrid/wayfinder/pkg/eventbus"
	"github.com/waygrid/wayfinder/pkg/health"
	"github.com/waygrid/wayfinder/pkg/logger"
	"github.com/waygrid/wayfinder/pkg/middleware"
	"github.com/waygrid/wayfinder/pkg/ratelimit"
	redisClient "github.com/waygrid/wayfinder/pkg/redis"
	"github.com/waygrid/wayfinder/pkg/resilience"
	"github.com/waygrid/wayfinder/pkg/tracing"
	"go.uber.org/zap"
)

const (
	serviceName = "wayfinder"
	version     = "1.0.0"
)

func main() {
	if os.Getenv("PORT") == "" {
		os.Setenv("PORT", "8080")
	}
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting wayfinder",
		zap.String("service", serviceName),
		zap.String("version", version),
	)

	sentryConfig := errors.DefaultSentryConfig()
	sentryConfig.ServerName = serviceName
	sentryConfig.Release = version
	if err := errors.InitSentry(sentryConfig); err != nil {
		logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
	} else {
		defer errors.Flush(2 * time.Second)
	}

	tracerEnabled := os.Getenv("OTEL_ENABLED") == "true"
	if tracerEnabled {
		tracerCfg := tracing.Config{
			ServiceName:    serviceName,
			ServiceVersion: version,
			Environment:    cfg.Server.Environment,
			OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Enabled:        true,
		}
		tp, err := tracing.InitTracer(tracerCfg, logger.Get())
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
			tracerEnabled = false
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Failed to shutdown tracer", zap.Error(err))
				}
			}()
		}
	}

	redis, err := redisClient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	cacheManager := cache.NewManager(redis)
	limiter := ratelimit.NewLimiter(redis.Client, cfg.RateLimit)

	if err := database.RunMigrations(&cfg.Database); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer database.Close(pool)

	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		busCfg := eventbus.DefaultConfig()
		if cfg.NATS.URL != "" {
			busCfg.URL = cfg.NATS.URL
		}
		bus, err = eventbus.New(busCfg)
		if err != nil {
			logger.Warn("Failed to connect to NATS, continuing without events", zap.Error(err))
			bus = nil
		} else {
			defer bus.Close()
		}
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	var mirror graph.Mirror
	if cfg.S3.Enabled {
		m, err := graph.NewS3Mirror(rootCtx, cfg.S3)
		if err != nil {
			logger.Warn("Failed to initialize S3 graph mirror, continuing with local store only", zap.Error(err))
		} else {
			mirror = m
		}
	}

	store, err := graph.NewStore(cfg.Graph.CacheDir, mirror)
	if err != nil {
		logger.Fatal("Failed to open graph store", zap.Error(err))
	}

	loader := graph.NewLoader(cfg.Graph, breakerFor(cfg, "overpass"))
	graphs, err := graph.NewCache(cfg.Graph, store, loader)
	if err != nil {
		logger.Fatal("Failed to initialize graph cache", zap.Error(err))
	}
	defer graphs.Stop()

	var matrixGraphs matrix.GraphProvider = graphs
	if cfg.Graph.Country != "" {
		matrixGraphs = graph.NewCountryProvider(graphs, cfg.Graph.Country)
		logger.Info("Matrix requests will consult the country graph first",
			zap.String("country", cfg.Graph.Country))
	}

	matrixSvc := matrix.NewService(matrixGraphs)
	directionsSvc := directions.NewService(cfg.OSRM, breakerFor(cfg, "osrm"), graphs, cacheManager, matrixSvc)
	isochroneSvc, err := isochrone.NewService(cfg.Isochrone, graphs)
	if err != nil {
		logger.Fatal("Failed to initialize isochrone service", zap.Error(err))
	}
	geocodingSvc := geocoding.NewService(cfg.Nominatim, breakerFor(cfg, "nominatim"), cacheManager)

	usageRepo := usage.NewRepository(pool)
	var publisher usage.Publisher
	if bus != nil {
		publisher = bus
	}
	tracker := usage.NewTracker(usageRepo, publisher)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoRoute(common.NoRouteHandler())
	router.NoMethod(common.NoMethodHandler())
	router.Use(middleware.RecoveryWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(time.Duration(cfg.Server.WriteTimeout) * time.Second))
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.CORS())
	router.Use(middleware.SanitizeRequest())
	router.Use(middleware.Metrics())
	router.Use(middleware.RateLimit(limiter, cfg.RateLimit))
	if tracerEnabled {
		router.Use(middleware.TracingMiddleware(serviceName))
	}
	router.Use(middleware.ErrorHandler())

	deep := health.NewDeepChecker(health.DefaultDeepCheckerConfig())
	deep.SetDatabase(pool)
	deep.SetRedis(redis.Client)

	router.GET("/health", common.HealthCheck(serviceName, version))
	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, map[string]func() error{
		"redis":     health.RedisChecker(redis.Client),
		"postgres":  health.DatabaseChecker(pool),
		"graph_dir": health.DirectoryChecker(cfg.Graph.CacheDir),
	}))
	router.GET("/health/deep", gin.WrapF(deep.Handler()))
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": serviceName, "version": version})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.OptionalAuthMiddleware(cfg.JWT.Secret))

	directions.NewHandler(directionsSvc).RegisterRoutes(
		api.Group("", tracker.Track(usage.KindRouting, "directions")))
	matrix.NewHandler(matrixSvc).RegisterRoutes(
		api.Group("", tracker.Track(usage.KindMatrix, "matrix")))
	isochrone.NewHandler(isochroneSvc).RegisterRoutes(
		api.Group("", tracker.Track(usage.KindIsochrone, "isochrone")))
	geocoding.NewHandler(geocodingSvc).RegisterRoutes(
		api.Group("", tracker.Track(usage.KindGeocoding, "geocoding")))

	usage.NewHandler(usageRepo, cacheManager).RegisterRoutes(
		api.Group("", middleware.AuthMiddleware(cfg.JWT.Secret)))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// breakerFor builds a circuit breaker for one upstream, or nil when breakers
// are disabled.
func breakerFor(cfg *config.Config, upstream string) *resilience.CircuitBreaker {
	cb := cfg.Resilience.CircuitBreaker
	if !cb.Enabled {
		return nil
	}

	settings := cb.SettingsFor(upstream)
	return resilience.NewCircuitBreaker(resilience.Settings{
		Name:             fmt.Sprintf("%s-%s", serviceName, upstream),
		Interval:         time.Duration(settings.IntervalSeconds) * time.Second,
		Timeout:          time.Duration(settings.TimeoutSeconds) * time.Second,
		FailureThreshold: uint32(settings.FailureThreshold),
		SuccessThreshold: uint32(settings.SuccessThreshold),
	}, nil)
}
