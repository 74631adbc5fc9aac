package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gatekeeper-backend/internal/cache"
	"gatekeeper-backend/internal/config"
	"gatekeeper-backend/internal/events"
	"gatekeeper-backend/internal/jobs"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/repository/postgres"
	"gatekeeper-backend/internal/scheduler"
	"gatekeeper-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'release-stale-claims', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Gatekeeper Cronjob Runner...", "log_level", cfg.Log.Level)

	// Released claims must disappear from the server's open queue at once.
	if err := cfg.ValidateStandaloneJobs(); err != nil {
		logger.Error("Refusing to run standalone jobs", "error", err)
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	store := postgres.NewStore(db)

	rdb, err := events.NewRedisClient(ctx, events.RedisOptions{
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
	hooks := service.Hooks{Cache: cache.NewRedis(rdb, cfg.CacheTTL())}

	jobRunner := jobs.NewJobRunner(service.NewMaintenanceService(store.ClaimRepository, hooks), cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.", "next_run", cronScheduler.NextRun())

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "release-stale-claims":
		jobRunner.ReleaseStaleClaims()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - release-stale-claims\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
