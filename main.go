package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"debias/adapters/memory"
	"debias/adapters/postgres"
	"debias/api"
	"debias/internal"
	"debias/internal/config"
	"debias/internal/correct"
	"debias/internal/detect"
	"debias/internal/errors"
	"debias/internal/migration"
	"debias/internal/registry"
	"debias/internal/store"
	"debias/ports"
)

// initDatabase connects to PostgreSQL and applies migrations
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()
	logger.Info("Starting bias audit engine")

	// Repositories: postgres when configured, in-memory otherwise.
	var db *sqlx.DB
	var roleRepo ports.RoleRepository
	var jobRepo ports.JobRepository
	if appConfig.Database.URL != "" {
		db, err = initDatabase(appConfig)
		if err != nil {
			log.Fatalf("Database initialization failed: %v", err)
		}
		defer db.Close()
		roleRepo = postgres.NewRoleRepository(db)
		jobRepo = postgres.NewJobRepository(db)
		logger.Info("Using PostgreSQL persistence")
	} else {
		roleRepo = memory.NewRoleRepository()
		jobRepo = memory.NewJobRepository()
		logger.Info("No DATABASE_URL set, using in-memory persistence")
	}

	frameStore, err := store.NewLocalStore(appConfig.Storage.UploadDir, appConfig.Storage.CorrectedDir)
	if err != nil {
		log.Fatalf("Failed to initialize frame store: %v", err)
	}

	reg := registry.New(roleRepo)
	imbalance := detect.NewImbalanceDetector(appConfig.Detection.Severity)
	skew := detect.NewSkewnessDetector(appConfig.Detection.MinSkewSamples)
	categorical := correct.NewCategoricalCorrector(appConfig.Correct.Seed, appConfig.Correct.SMOTENeighbors)
	engine := correct.NewEngine(frameStore, jobRepo, categorical, skew, appConfig.Correct.JobTimeout)

	// Ops router on its own port.
	go func() {
		ops := api.NewOpsRouter(db)
		addr := ":" + appConfig.Server.OpsPort
		logger.Info("Ops router listening on %s", addr)
		if err := http.ListenAndServe(addr, ops); err != nil {
			logger.Error("Ops router stopped: %v", err)
		}
	}()

	server := api.NewServer(appConfig, frameStore, reg, imbalance, skew, engine)
	if err := server.Start(":" + appConfig.Server.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
