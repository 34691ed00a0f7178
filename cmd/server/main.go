package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crewsync-service/internal/infrastructure/config"
	"crewsync-service/internal/infrastructure/oauth"
	"crewsync-service/internal/infrastructure/persistence"
	"crewsync-service/internal/interface/graph"
	"crewsync-service/internal/interface/httpapi"
	"crewsync-service/internal/interface/merlot"
	storeRepo "crewsync-service/internal/interface/repository"
	"crewsync-service/internal/usecase"
	"crewsync-service/pkg/logger"
	"crewsync-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Crew Sync Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	// Set up PostgreSQL connection
	log.Info("Connecting to PostgreSQL")
	gormDB, err := persistence.NewPostgres(cfg.PostgresURI)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}

	// Set up metrics
	appMetrics := metrics.NewMetrics("crewsync")

	// Set up repositories
	flightRepo := storeRepo.NewFlightRecordRepo(gormDB, log)
	dutyRepo := storeRepo.NewDutyRecordRepo(gormDB, log)
	crewRepo := storeRepo.NewCrewRecordRepo(gormDB, log)
	snapshotRepo := storeRepo.NewScheduleSnapshotRepo(db, log)
	syncRunRepo := storeRepo.NewSyncRunRepo(db, log)

	// Set up upstream clients
	merlotClient := merlot.NewClient(cfg, log)
	graphOAuth := oauth.NewGraphOAuth(cfg.GraphTenantID, cfg.GraphClientID, cfg.GraphSecret, cfg.GraphScope, log)
	graphClient := graph.NewClient(cfg, graphOAuth.NewHTTPClient(ctx), log)

	// Set up usecases
	policy := usecase.PolicyFromConfig(cfg.TestMode, cfg.TestUsers)
	if cfg.TestMode {
		log.Warn("Test mode enabled, side effects restricted to test users", "count", len(cfg.TestUsers))
	}

	crewResolver := usecase.NewCrewResolverUsecase(crewRepo, merlotClient, graphClient, log)
	calendarPropagator := usecase.NewCalendarPropagatorUsecase(graphClient, policy, log, appMetrics)
	teamPropagator := usecase.NewTeamPropagatorUsecase(graphClient, policy, cfg.TeamsOwner, cfg.TeamsAdditionalMembers, log, appMetrics)

	orchestrator := usecase.NewSyncOrchestratorUsecase(
		merlotClient, merlotClient,
		flightRepo, dutyRepo,
		snapshotRepo, syncRunRepo,
		crewResolver, calendarPropagator, teamPropagator,
		cfg, log, appMetrics,
	)

	// Start the sync tickers
	orchestrator.Start(ctx)

	// Set up HTTP server for the read API and metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpapi.NewHandler(snapshotRepo, dutyRepo, log).Register(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all sync loops

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Crew Sync Service stopped")
}
