package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofrs/flock"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/api"
	"github.com/maheshrc27/reelflow/internal/database"
	job "github.com/maheshrc27/reelflow/internal/jobs"
	"github.com/maheshrc27/reelflow/internal/notifications"
	"github.com/maheshrc27/reelflow/internal/quality"
	"github.com/maheshrc27/reelflow/internal/queue"
	"github.com/maheshrc27/reelflow/internal/render"
	"github.com/maheshrc27/reelflow/internal/repository"
	"github.com/maheshrc27/reelflow/internal/scheduling"
	"github.com/maheshrc27/reelflow/internal/selection"
	"github.com/maheshrc27/reelflow/internal/service"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	content, err := config.LoadContent(cfg.ContentConfigPath)
	if err != nil {
		log.Fatalf("Failed to load content config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	lock := flock.New(filepath.Join(cfg.DataDir, "reelflow.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("Failed to lock data directory: %v", err)
	}
	if !locked {
		log.Fatalf("Another reelflow server is already running on %s", cfg.DataDir)
	}
	defer lock.Unlock()

	dsn := cfg.SQLitePath
	if cfg.DatabaseDriver == database.DriverPostgres {
		dsn = cfg.PostgresURI
	}
	db, err := database.Open(ctx, cfg.DatabaseDriver, dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	videoRepo := repository.NewVideoRepository(db)
	musicRepo := repository.NewMusicRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	reelRepo := repository.NewReelRepository(db)
	scheduledRepo := repository.NewScheduledPostRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	publishedRepo := repository.NewPublishedPostRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	r2Service := service.NewR2Service(cfg.R2)
	var store service.ObjectStore
	if r2Service.Configured() {
		store = r2Service
	}
	publisher, err := service.NewPublisher(*cfg, store)
	if err != nil {
		log.Fatalf("Failed to set up publisher: %v", err)
	}

	notifier := notifications.NewNotifier(*cfg)

	deps := service.ReelServiceDeps{
		DB:        db,
		Reels:     reelRepo,
		Scheduled: scheduledRepo,
		Entries:   calendarRepo,
		Published: publishedRepo,
		Metrics:   metricsRepo,
		Settings:  settingsRepo,
		Videos:    videoRepo,
		Music:     musicRepo,
		Quotes:    quoteRepo,
		Selector:  selection.NewEngine(videoRepo, musicRepo, quoteRepo, content),
		Pipeline:  render.NewCommandPipeline(cfg.RenderCommand, cfg.OutputDir),
		Gate: quality.NewGate(content.Content.QualityThreshold, quality.FileValidator{
			MinSize: content.Content.MinFileSize,
			MaxSize: content.Content.MaxFileSize,
		}),
		Publisher:     publisher,
		Notifier:      notifier,
		Captions:      service.NewCaptionService(cfg.OpenAIKey, cfg.OpenAIModel, content),
		Ideas:         service.NewIdeaService(cfg.OpenAIKey, cfg.OpenAIModel, content),
		Downloader:    service.NewAssetDownloader(*cfg, nil),
		Content:       content,
		VideoDir:      cfg.VideoDir,
		MusicDir:      cfg.MusicDir,
		RenderTimeout: cfg.RenderTimeout,
	}

	var redisConn asynq.RedisConnOpt
	if cfg.RedisURI != "" {
		redisConn, err = asynq.ParseRedisURI(cfg.RedisURI)
		if err != nil {
			log.Fatalf("Invalid REDIS_URI: %v", err)
		}
		client := asynq.NewClient(redisConn)
		defer client.Close()
		deps.Trigger = queue.NewQueue(client)
	} else {
		log.Println("REDIS_URI is empty, scheduled posts are published by the polling job only")
	}

	reels := service.NewReelService(deps)

	scheduler := scheduling.New(scheduling.WithErrorHandler(job.ErrorHandler(notifier)))
	if err := job.NewContentJobs(reels, notifier, content).Register(ctx, scheduler); err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}

	app := api.NewApp(*cfg, reels, scheduler)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	g.Go(func() error {
		log.Printf("Server is running on %s", cfg.ListenAddr)
		if err := app.Listen(cfg.ListenAddr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		return app.ShutdownWithTimeout(30 * time.Second)
	})

	if redisConn != nil {
		worker := queue.NewWorker(reels)
		server := queue.NewServer(redisConn, 2)
		g.Go(func() error {
			log.Println("Starting the Asynq server...")
			if err := server.Start(worker.Mux()); err != nil {
				return fmt.Errorf("asynq server: %w", err)
			}
			<-gctx.Done()
			server.Shutdown()
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server stopped with error: %v", err)
	}
	log.Println("Server shutdown complete.")
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}
