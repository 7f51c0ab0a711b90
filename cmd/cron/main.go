package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/fieldops/core/internal/config"
	"github.com/fieldops/core/pkg/database"
	"github.com/fieldops/core/pkg/jobs"
	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/services"
)

func main() {
	// Parse command line flags
	var (
		jobName = flag.String("job", "", "Run specific job once (calendar_refresh, daily_digest)")
		once    = flag.Bool("once", false, "Run job once and exit")
	)
	flag.Parse()

	logger.SetupLogger()
	log := logger.New("cron-service")

	cfg := config.Load()

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	queries := database.New(db)
	if err := queries.RunMigrations(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize services
	calendarClient := services.NewCalendarClient(cfg)
	collections := services.NewCollectionService(queries, calendarClient, log)
	preview := services.NewPreviewService(collections, log, cfg.Engine.DefaultHorizonDays)

	// Create job manager
	jobManager := jobs.NewJobManager(log)

	// Register jobs
	refreshJob := jobs.NewCalendarRefreshJob(queries, collections, log)
	if err := jobManager.RegisterJob(refreshJob); err != nil {
		log.Fatalf("Failed to register calendar refresh job: %v", err)
	}

	digestJob := jobs.NewDailyDigestJob(queries, preview, log)
	if err := jobManager.RegisterJob(digestJob); err != nil {
		log.Fatalf("Failed to register daily digest job: %v", err)
	}

	// Handle single job execution
	if *once && *jobName != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		switch *jobName {
		case "calendar_refresh":
			log.Info().Msg("Running calendar refresh job once...")
			if err := refreshJob.Execute(ctx); err != nil {
				log.Fatalf("Failed to execute calendar refresh job: %v", err)
			}
			log.Info().Msg("Calendar refresh completed successfully")
		case "daily_digest":
			log.Info().Msg("Running daily digest job once...")
			if err := digestJob.Execute(ctx); err != nil {
				log.Fatalf("Failed to execute daily digest job: %v", err)
			}
			log.Info().Msg("Daily digest completed successfully")
		default:
			log.Fatalf("Unknown job: %s. Available jobs: calendar_refresh, daily_digest", *jobName)
		}
		return
	}

	// Start job manager
	jobManager.Start()
	log.Info().Int("job_count", len(jobManager.GetJobs())).Msg("Cron job service started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down cron job service...")
	jobManager.Stop()
	log.Info().Msg("Cron job service stopped")
}
