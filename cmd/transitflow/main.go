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
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richxcame/transitflow/internal/feed"
	"github.com/richxcame/transitflow/internal/realtime"
	"github.com/richxcame/transitflow/internal/routes"
	"github.com/richxcame/transitflow/internal/tracking"
	"github.com/richxcame/transitflow/pkg/cache"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/config"
	"github.com/richxcame/transitflow/pkg/database"
	"github.com/richxcame/transitflow/pkg/errors"
	"github.com/richxcame/transitflow/pkg/eventbus"
	"github.com/richxcame/transitflow/pkg/jwtkeys"
	"github.com/richxcame/transitflow/pkg/logger"
	"github.com/richxcame/transitflow/pkg/middleware"
	"github.com/richxcame/transitflow/pkg/ratelimit"
	redisclient "github.com/richxcame/transitflow/pkg/redis"
	"github.com/richxcame/transitflow/pkg/resilience"
	"github.com/richxcame/transitflow/pkg/tracing"
	ws "github.com/richxcame/transitflow/pkg/websocket"
)

const (
	serviceName = "transitflow"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	instanceID := uuid.NewString()
	if err := logger.Init(cfg.Server.Environment, cfg.Server.LogLevel, zap.String("instance_id", instanceID)); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting transitflow",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
	)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sentryConfig := errors.SentryConfigFrom(cfg)
	if sentryConfig.Enabled() {
		if err := errors.InitSentry(sentryConfig); err != nil {
			logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
		} else {
			defer errors.Flush(2 * time.Second)
			logger.Info("Sentry error tracking initialized")
		}
	}

	tp, err := tracing.InitTracer(tracing.ConfigFrom(cfg), logger.Get())
	if err != nil {
		logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
	} else if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Failed to shutdown tracer", zap.Error(err))
			}
		}()
	}

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(cfg.Database.URL()); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	db, err := database.NewPostgresPool(rootCtx, &cfg.Database, serviceName)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to database")

	redisClient, err := redisclient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}()

	breakerCfg := cfg.Resilience.CircuitBreaker

	// Routes: postgres -> breaker -> redis cache
	routeRepo := routes.NewRepository(db)
	routeGuard := routes.NewUpstreamStore(routeRepo)
	if breakerCfg.Enabled {
		routeGuard = routes.NewBreakerStore(routeRepo, resilience.SettingsFromConfig("route-store", breakerCfg))
	}
	var routeStore routes.Store = routeGuard
	if ttl := cfg.Matching.RouteCacheTTL(); ttl > 0 {
		routeStore = routes.NewCachedStore(routeStore, cache.NewManager(redisClient), ttl)
	}
	routesSvc := routes.NewService(routeStore,
		routes.NewMatcher(cfg.Matching.RadiusMeters, cfg.Matching.FallbackSize),
		routes.NewPlanner(),
	)

	// Tracking: postgres -> breaker, live positions in redis
	vehicleRepo := tracking.NewRepository(db)
	vehicleGuard := tracking.NewUpstreamStore(vehicleRepo)
	if breakerCfg.Enabled {
		vehicleGuard = tracking.NewBreakerStore(vehicleRepo, resilience.SettingsFromConfig("vehicle-store", breakerCfg))
	}
	trackingSvc := tracking.NewService(vehicleGuard,
		tracking.NewPositionCache(redisClient, cfg.Realtime.PositionTTL()),
		routesSvc,
	)
	trackingSvc.SetNearbyRadius(cfg.Matching.NearbyRadiusMeters)

	hub := ws.NewHub()
	go hub.Run(rootCtx)

	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.NATS.URL
		busCfg.Name = serviceName + "-" + instanceID
		bus, err = eventbus.New(busCfg)
		if err != nil {
			logger.Warn("Failed to connect to NATS, location relay disabled", zap.Error(err))
			bus = nil
		} else {
			defer bus.Close()
		}
	}

	var broadcaster *realtime.Broadcaster
	if bus != nil {
		broadcaster = realtime.NewBroadcaster(hub, bus, instanceID)
		if err := realtime.NewRelay(hub, instanceID).Start(rootCtx, bus); err != nil {
			logger.Fatal("Failed to start location relay", zap.Error(err))
		}
	} else {
		broadcaster = realtime.NewBroadcaster(hub, nil, instanceID)
	}
	trackingSvc.SetBroadcaster(broadcaster)

	limiter := ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)

	realtimeSvc := realtime.NewService(hub, trackingSvc)
	realtimeSvc.SetThrottle(limiter)
	feedSvc := feed.NewService(trackingSvc)

	jwtProvider := jwtkeys.NewStaticProvider(cfg.JWT.Secret)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.TracingMiddleware(serviceName))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(middleware.ErrorHandler())

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))

	healthChecks := map[string]func() error{
		"database": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Ping(ctx)
		},
		"redis": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		},
	}
	if breakerCfg.Enabled {
		healthChecks["route-store"] = routeGuard.Healthy
		healthChecks["vehicle-store"] = vehicleGuard.Healthy
	}
	if bus != nil {
		healthChecks["nats"] = bus.Ping
	}
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, healthChecks))

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"version": version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")

	// The websocket authenticates its own upgrade and must not be cut off by
	// the request timeout.
	realtimeHandler := realtime.NewHandler(realtimeSvc, jwtProvider, cfg.Realtime.SendBuffer)
	realtimeHandler.RegisterWebSocket(api)

	authed := api.Group("")
	authed.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout()))
	authed.Use(middleware.AuthMiddleware(jwtProvider))
	authed.Use(middleware.SetSentryUser)
	routes.NewHandler(routesSvc).RegisterRoutes(authed, limiter)
	tracking.NewHandler(trackingSvc).RegisterRoutes(authed, limiter)
	feed.NewHandler(feedSvc).RegisterRoutes(authed)
	realtimeHandler.RegisterRoutes(authed)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
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
	cancel()

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
