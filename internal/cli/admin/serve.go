package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/inlet-labs/inlet/internal/api/handlers"
	"github.com/inlet-labs/inlet/internal/config"
	"github.com/inlet-labs/inlet/internal/database"
	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/extract"
	"github.com/inlet-labs/inlet/internal/fetch"
	"github.com/inlet-labs/inlet/internal/jobs"
	"github.com/inlet-labs/inlet/internal/pipeline"
	"github.com/inlet-labs/inlet/internal/repository"
	"github.com/inlet-labs/inlet/internal/server"
	"github.com/inlet-labs/inlet/internal/service"
	"github.com/inlet-labs/inlet/internal/storage"
	"github.com/inlet-labs/inlet/internal/stt"
	"github.com/inlet-labs/inlet/internal/telemetry"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and capture worker",
		Long:  "Start the inlet API server and the background capture worker on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	itemRepo := repository.NewItemRepository(pool)
	assetRepo := repository.NewImageAssetRepository(pool)
	jobRepo := repository.NewCaptureJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	fetcher := fetch.NewFetcher(fetch.Config{
		FetchTimeout: cfg.FetchTimeout,
		MediaTimeout: cfg.MediaTimeout,
		YtdlpPath:    cfg.YtdlpPath,
	})
	extractor := extract.NewExtractor()
	sttClient := stt.NewClient(cfg.STTServiceURL, cfg.STTHealthURL(), cfg.MediaTimeout)

	var harvester pipeline.ImageHarvester = &noStoreHarvester{}
	var bucketChecker service.BucketChecker
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		harvester = pipeline.NewHarvester(fetcher, s3Client, uuid.NewString)
		bucketChecker = s3Client
	}

	transcriber := pipeline.NewTranscriber(fetcher, sttClient)
	processor := pipeline.NewProcessor(itemRepo, txRunner, fetcher, extractor, harvester, transcriber)

	captureWorker := jobs.NewCaptureWorker(jobRepo, itemRepo, processor, cfg.StaleAfter)
	worker := jobs.NewWorker(captureWorker, cfg.WorkerPollInterval)
	go worker.Start(ctx)
	log.Println("capture worker started")

	captureSvc := service.NewCaptureService(txRunner)
	itemSvc := service.NewItemService(itemRepo, assetRepo, txRunner)
	consoleSvc := service.NewConsoleService(pool, bucketChecker, sttClient, itemRepo, jobRepo)

	routerCfg := server.RouterConfig{
		ConsoleToken:   cfg.ConsoleToken,
		CaptureHandler: handlers.NewCaptureHandler(captureSvc),
		ItemHandler:    handlers.NewItemHandler(itemSvc),
		ConsoleHandler: handlers.NewConsoleHandler(consoleSvc, itemSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// noStoreHarvester stands in when object storage is not configured. Pages
// still capture, their images are skipped.
type noStoreHarvester struct{}

func (h *noStoreHarvester) Harvest(ctx context.Context, itemID, pageURL string, refs []string) ([]*domain.ImageAsset, error) {
	if len(refs) > 0 {
		log.Printf("skipping %d images for item %s: object storage not configured", len(refs), itemID)
	}
	return nil, nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
