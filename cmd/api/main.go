package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/asotbz/fuzzbin/internal/adapter/repo"
	"github.com/asotbz/fuzzbin/internal/http/handlers"
	httpapi "github.com/asotbz/fuzzbin/internal/http/httpapi"
	"github.com/asotbz/fuzzbin/internal/infra"
	"github.com/asotbz/fuzzbin/internal/providers/imvdb"
	"github.com/asotbz/fuzzbin/internal/providers/ytdlp"
	"github.com/asotbz/fuzzbin/internal/queue"
	"github.com/asotbz/fuzzbin/internal/storage"
	"github.com/asotbz/fuzzbin/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	if err := infra.EnsureSchema(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	videos := repo.NewVideoRepository(dbpool)
	artists := repo.NewArtistRepository(dbpool)

	library, err := storage.NewLibrary(cfg.LibraryPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare library")
	}
	if err := os.MkdirAll(cfg.TempPath, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare temp directory")
	}

	searcher, err := imvdb.NewClient(imvdb.Options{
		APIKey:        cfg.IMVDbAPIKey,
		BaseURL:       cfg.IMVDbBaseURL,
		Logger:        &logger,
		PerMinute:     float64(cfg.IMVDbPerMinute),
		Burst:         float64(cfg.IMVDbBurst),
		MaxConcurrent: cfg.IMVDbMaxConcurrent,
		CacheTTL:      cfg.IMVDbCacheTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build imvdb client")
	}
	downloader, err := ytdlp.NewDownloader(ytdlp.Options{
		Path:          cfg.YTDLPPath,
		Logger:        &logger,
		PerMinute:     float64(cfg.YTDLPPerMinute),
		MaxConcurrent: cfg.YTDLPMaxConcurrent,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build downloader")
	}

	jobs := queue.New(cfg.QueueWorkers, logger)
	workflow.New(workflow.Config{
		Videos:     videos,
		Artists:    artists,
		Library:    library,
		Searcher:   searcher,
		Downloader: downloader,
		TempDir:    cfg.TempPath,
		Logger:     logger,
	}).Register(jobs)

	app := &handlers.App{
		Queue:     jobs,
		Videos:    videos,
		Artists:   artists,
		BackupDir: cfg.BackupPath,
		Logger:    logger,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	// Let running jobs observe cancellation and drain the workers.
	jobs.Close()
	logger.Info().Msg("server stopped")
}
