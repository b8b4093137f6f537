package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/coverwise/marketcore/internal/cache"
	"github.com/coverwise/marketcore/internal/core"
	transporthttp "github.com/coverwise/marketcore/internal/http"
	"github.com/coverwise/marketcore/internal/http/handlers"
	"github.com/coverwise/marketcore/internal/http/health"
	"github.com/coverwise/marketcore/internal/jobs"
	"github.com/coverwise/marketcore/internal/middleware"
	"github.com/coverwise/marketcore/internal/platform/config"
	"github.com/coverwise/marketcore/internal/platform/logging"
	"github.com/coverwise/marketcore/internal/store/dynamo"
	"github.com/coverwise/marketcore/internal/store/mongo"
)

func main() {
	cfg := config.MustLoad()
	logger := logging.New(cfg.Env)
	logger.Info("starting marketcore API", "env", cfg.Env, "db_type", cfg.DBType)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Store selection ----
	var (
		catalogRepo core.CatalogRepo
		profileRepo core.ProfileRepo
		claimRepo   core.ClaimRepo
		pinger      health.Pinger
	)

	switch cfg.DBType {
	case "mongo":
		mongoClient, err := mongo.NewClient(cfg)
		if err != nil {
			log.Fatalf("failed to connect to MongoDB: %v", err)
		}
		defer mongoClient.Close(context.Background())

		if err := mongo.EnsureIndexes(ctx, mongoClient.DB); err != nil {
			log.Fatalf("failed to ensure indexes: %v", err)
		}

		opTimeout := time.Duration(cfg.MongoOpTimeoutMs) * time.Millisecond
		catalogRepo = mongo.NewCatalogRepo(mongoClient.DB, opTimeout)
		profileRepo = mongo.NewProfileRepo(mongoClient.DB, opTimeout)
		claimRepo = mongo.NewClaimRepo(mongoClient.DB, opTimeout)
		pinger = mongoClient
		logger.Info("connected to MongoDB", "db", cfg.MongoDB)

	case "dynamodb":
		dynamoClient, err := dynamo.NewClient(ctx, dynamo.Config{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			log.Fatalf("failed to connect to DynamoDB: %v", err)
		}

		if err := dynamo.EnsureTables(ctx, dynamoClient.DB, logger); err != nil {
			log.Fatalf("failed to ensure tables: %v", err)
		}

		catalogRepo = dynamo.NewCatalogRepo(dynamoClient)
		profileRepo = dynamo.NewProfileRepo(dynamoClient)
		claimRepo = dynamo.NewClaimRepo(dynamoClient)
		pinger = dynamoClient
		logger.Info("connected to DynamoDB", "region", cfg.AWSRegion)

	default:
		log.Fatalf("unsupported DB_TYPE: %s", cfg.DBType)
	}

	// ---- Cache ----
	// The rate limiter always needs a counter backend, so "none" still gets
	// an in-process LRU; it just skips the catalog decorator.
	cacheCfg := cache.Config{
		Type:          cfg.CacheType,
		MaxSize:       cfg.CacheMaxSize,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	}
	if cacheCfg.Type == "none" {
		cacheCfg.Type = "memory"
	}
	appCache, err := cache.New(cacheCfg)
	if err != nil {
		log.Fatalf("failed to create cache: %v", err)
	}
	defer appCache.Close()

	if cfg.CacheType != "none" {
		catalogTTL := time.Duration(cfg.CacheTTLSec) * time.Second
		catalogRepo = cache.NewCachedCatalog(catalogRepo, appCache, catalogTTL, logger)
		logger.Info("catalog cache enabled", "type", cfg.CacheType, "ttl", catalogTTL)
	}

	// ---- Domain services ----
	scorer := core.NewScorer(cfg.CoverageCeiling)
	recSvc := core.NewRecommendationService(catalogRepo, profileRepo, scorer)

	rules := core.NewFraudRules(
		cfg.HighAmountThreshold,
		time.Duration(cfg.ResubmitCooldownHours)*time.Hour,
	)
	claimSvc := core.NewClaimService(claimRepo, catalogRepo, profileRepo, rules, core.ClaimServiceOptions{
		ReviewBypass: cfg.ReviewBypass,
	})

	// ---- HTTP ----
	api := transporthttp.NewRouter(transporthttp.Deps{
		Mounts: []handlers.Mountable{
			handlers.NewRecommendationHandler(recSvc, logger),
			handlers.NewClaimHandler(claimSvc, logger),
		},
	})

	rateLimiter := middleware.NewRateLimiter(appCache, cfg.RateLimitRPM, time.Minute, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(time.Duration(cfg.HTTPRequestTimeoutSec) * time.Second))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.LimitRequestBody(middleware.MaxBodySize))
	r.Use(rateLimiter.Middleware)
	r.Use(middleware.SimpleAPIKey(cfg.APIKey))

	r.Mount("/", health.New(logger, 2*time.Second,
		health.Check{Name: "store", Pinger: pinger},
		health.Check{Name: "cache", Pinger: appCache},
	))
	r.Mount("/v1", api)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	// ---- Background workers ----
	if cfg.WorkerEnabled {
		worker := jobs.NewEscalationWorker(
			claimSvc,
			time.Duration(cfg.WorkerIntervalSec)*time.Second,
			time.Duration(cfg.EscalateAfterMinutes)*time.Minute,
			logger,
		)
		go worker.Start(ctx)
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	logger.Info("shutdown complete")
}
