package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/reflection"

	api "gatekeeper-backend/internal/api/grpc"
	httpapi "gatekeeper-backend/internal/api/http"
	"gatekeeper-backend/internal/cache"
	"gatekeeper-backend/internal/config"
	"gatekeeper-backend/internal/events"
	"gatekeeper-backend/internal/jobs"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/metrics"
	"gatekeeper-backend/internal/repository/postgres"
	"gatekeeper-backend/internal/scheduler"
	"gatekeeper-backend/internal/security"
	"gatekeeper-backend/internal/service"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	withScheduler := flag.Bool("scheduler", true, "Run the stale-claim release job in this process")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Gatekeeper review backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http_address", cfg.GetHTTPAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Redis, cache and status publisher
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = events.NewRedisClient(ctx, events.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Error("Failed to connect to redis", "error", err, "addr", cfg.Redis.Addr)
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		logger.Info("Redis connection established", "addr", cfg.Redis.Addr)
	}

	var openCache cache.OpenApplications
	if cfg.Cache.Type == "redis" {
		openCache = cache.NewRedis(rdb, cfg.CacheTTL())
	} else {
		openCache = cache.NewMemory(cfg.CacheTTL())
	}
	logger.Info("Open applications cache", "type", cfg.Cache.Type, "ttl", cfg.CacheTTL())

	var publisher events.Publisher = events.NoopPublisher{}
	if rdb != nil {
		publisher = events.NewRedisPublisher(rdb, cfg.Redis.StatusStream)
		logger.Info("Publishing status changes", "stream", cfg.Redis.StatusStream)
	}

	m := metrics.New()
	hooks := service.Hooks{Cache: openCache, Publisher: publisher, Metrics: m}

	// Initialize Services
	resolver := service.NewResolver(store.ApplicationRepository)
	claimSvc := service.NewClaimService(resolver, store.ClaimRepository, hooks)
	decisionSvc := service.NewDecisionService(resolver, store.DecisionRepository, hooks)
	policy := service.NewReapplicationPolicy(store.ApplicationRepository)
	submissionSvc := service.NewSubmissionService(resolver, store.ApplicationRepository, policy, cfg.Review.DefaultCooldownHours, hooks)
	queueSvc := service.NewQueueService(resolver, store.ApplicationRepository, store.ClaimRepository, store.ReviewActionRepository, hooks)
	maintenanceSvc := service.NewMaintenanceService(store.ClaimRepository, hooks)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)

	// Set up HTTP API
	router := mux.NewRouter()
	router.Use(httpapi.NewAuthMiddleware(tokenManager).Handler)
	httpapi.NewReviewHandler(claimSvc, decisionSvc, policy, submissionSvc, queueSvc, cfg.Review.DefaultCooldownHours).RegisterRoutes(router)
	httpapi.RegisterOpsRoutes(router, store, m.Handler())

	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up gRPC health server
	grpcServer := api.NewServer(store)
	reflection.Register(grpcServer)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		grpcServer.MonitorDatabase(gctx, 15*time.Second)
		return nil
	})

	if *withScheduler {
		cronScheduler, err := scheduler.NewScheduler(jobs.NewJobRunner(maintenanceSvc, cfg))
		if err != nil {
			log.Fatalf("Failed to initialize scheduler: %v", err)
		}
		cronScheduler.Start()
		g.Go(func() error {
			<-gctx.Done()
			cronScheduler.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		grpcServer.Shutdown()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Gatekeeper review backend stopped. Goodbye!")
}
