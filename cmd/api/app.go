package main

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/family-calendar-api/api/swagger"
	"github.com/noah-isme/family-calendar-api/internal/handler"
	internalmiddleware "github.com/noah-isme/family-calendar-api/internal/middleware"
	"github.com/noah-isme/family-calendar-api/internal/repository"
	"github.com/noah-isme/family-calendar-api/internal/scheduler"
	"github.com/noah-isme/family-calendar-api/internal/service"
	"github.com/noah-isme/family-calendar-api/pkg/config"
	"github.com/noah-isme/family-calendar-api/pkg/export"
	"github.com/noah-isme/family-calendar-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/family-calendar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/family-calendar-api/pkg/middleware/requestid"
	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
	"github.com/noah-isme/family-calendar-api/pkg/signedurl"
)

type app struct {
	router    *gin.Engine
	scheduler *scheduler.DigestScheduler
}

func newApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*app, error) {
	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	families := repository.NewFamilyRepository(db)
	events := repository.NewEventRepository(db)

	checks := map[string]handler.Pinger{"postgres": db}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		redisCache := repository.NewCacheRepository(redisClient, logr)
		checks["redis"] = handler.PingFunc(redisCache.Ping)
		cacheRepo = redisCache
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	location := cfg.Calendar.Location()
	unknownRules := recurrence.UnknownRulePolicy(cfg.Calendar.UnknownRules)
	engine := recurrence.NewEngine(recurrence.Config{
		MaxOccurrences: cfg.Calendar.MaxOccurrences,
		LookBackDays:   cfg.Calendar.LookBackDays,
		LookAheadDays:  cfg.Calendar.LookAheadDays,
		UnknownRules:   unknownRules,
	}, recurrence.SystemClock{Location: location})

	authSvc := service.NewAuthService(users, families, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	profileSvc := service.NewProfileService(users, families, logr)
	eventSvc := service.NewEventService(service.EventServiceParams{
		Repo:      events,
		Engine:    engine,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
		CacheTTL:  cfg.Cache.TTL,
	})
	exportSvc := service.NewExportService(eventSvc, families, users, logr, export.NewCSVExporter(), export.NewPDFExporter())
	pushSvc := service.NewPushService(users, cfg.Push.VAPIDPublicKey, validate, logr)

	var dispatcher service.Dispatcher = service.NewLogDispatcher(logr)
	if redisClient != nil {
		dispatcher = service.NewOutboxDispatcher(repository.NewPushOutboxRepository(redisClient, cfg.Push.OutboxKey))
	}
	digestSvc := service.NewDigestService(service.DigestServiceParams{
		Events:      eventSvc,
		Normalizer:  engine.Normalizer(),
		Families:    families,
		Subscribers: users,
		Dispatcher:  dispatcher,
		Metrics:     metricsSvc,
		Logger:      logr,
		Config: service.DigestConfig{
			Workers:     cfg.Digest.Workers,
			MaxRetries:  cfg.Digest.MaxRetries,
			RetryDelay:  cfg.Digest.RetryDelay,
			QueueBuffer: cfg.Digest.QueueBuffer,
			RunTimeout:  cfg.Digest.RunTimeout,
		},
	})

	signer, err := signedurl.FeedSigner(cfg.Feeds.SigningSecret, cfg.JWT.Secret, cfg.Feeds.TTL)
	if err != nil {
		return nil, fmt.Errorf("feed signer: %w", err)
	}
	feedSvc := service.NewFeedService(service.FeedServiceParams{
		Events:   eventSvc,
		Families: families,
		Members:  users,
		Signer:   signer,
		Renderer: export.NewICSExporter(""),
		Logger:   logr,
		Config: service.FeedConfig{
			BaseURL:      strings.TrimRight(cfg.Feeds.PublicBaseURL, "/"),
			APIPrefix:    cfg.APIPrefix,
			Location:     location,
			UnknownRules: unknownRules,
		},
	})

	digestScheduler, err := scheduler.New(digestSvc, scheduler.Config{
		Enabled:     cfg.Digest.Enabled && cfg.Push.Configured(),
		MorningCron: cfg.Digest.MorningCron,
		EveningCron: cfg.Digest.EveningCron,
		Location:    location,
	}, logr)
	if err != nil {
		return nil, fmt.Errorf("digest scheduler: %w", err)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	eventHandler := handler.NewEventHandler(eventSvc, exportSvc)
	pushHandler := handler.NewPushHandler(pushSvc)
	digestHandler := handler.NewDigestHandler(digestSvc)
	feedHandler := handler.NewFeedHandler(feedSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/join-family", authHandler.JoinFamily)
	api.GET("/push/public-key", pushHandler.PublicKey)
	api.GET("/feeds/:token", feedHandler.Feed)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	secured.GET("/me", profileHandler.Me)

	eventsGroup := secured.Group("/events")
	eventsGroup.GET("", eventHandler.List)
	eventsGroup.GET("/summary", eventHandler.Summary)
	eventsGroup.GET("/export", eventHandler.Export)
	eventsGroup.POST("", eventHandler.Create)
	eventsGroup.GET("/:id", eventHandler.Get)
	eventsGroup.PUT("/:id", eventHandler.Update)
	eventsGroup.DELETE("/:id", eventHandler.Delete)

	secured.POST("/push/subscribe", pushHandler.Subscribe)
	secured.GET("/digests/preview", digestHandler.Preview)
	secured.POST("/feeds", feedHandler.Issue)

	return &app{router: r, scheduler: digestScheduler}, nil
}
