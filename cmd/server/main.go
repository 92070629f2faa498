package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-style-studio/internal/api"
	"chat-style-studio/internal/config"
	"chat-style-studio/internal/logging"
	"chat-style-studio/internal/service"
	"chat-style-studio/internal/storage"
	"chat-style-studio/internal/style"
	"chat-style-studio/internal/worker"
	"chat-style-studio/internal/ws"
	"github.com/rs/zerolog"
)

type repository interface {
	service.CollectionRepository
	io.Closer
}

func openRepository(cfg config.Config) (repository, error) {
	if cfg.RepoBackend == "sqlite" {
		return storage.NewSQLiteStore(cfg.SQLitePath)
	}
	return storage.NewStore(cfg.DataPath)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.AppEnv)

	repo, err := openRepository(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.RepoBackend).Msg("init repository")
	}
	defer repo.Close()

	blobs, err := storage.NewFileStore(cfg.BlobDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("init blob store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(logger)
	go hub.Run(ctx)
	collHub := ws.NewCollectionHub()
	events := ws.Multi{hub, collHub}

	captions := service.NewCaptions(cfg.DefaultLocale)
	extractor := style.NewExtractor(cfg.AnalysisSize, cfg.HistogramMaxColors, style.ParsePaletteMethod(cfg.PaletteMethod), logger)
	collections := service.NewCollectionService(repo, blobs, events, logger)
	styles := service.NewStyleService(repo, blobs, extractor, captions, events, logger, service.GenerationOptions{
		CanvasSize:     cfg.CanvasSize,
		JPEGQuality:    cfg.JPEGQuality,
		CollageQuality: cfg.CollageQuality,
		Seed:           cfg.StyleSeed,
	})

	pool := worker.NewPool(styles, cfg.WorkerQueue, logger)
	pool.Start(cfg.WorkerCount)

	router := api.NewRouter(api.Deps{
		Config:        cfg,
		Collections:   collections,
		Styles:        styles,
		Captions:      captions,
		Pool:          pool,
		Hub:           hub,
		CollectionHub: collHub,
		Logger:        logger,
	})
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.ListenAddr).
			Str("backend", cfg.RepoBackend).
			Str("palette", cfg.PaletteMethod).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("worker pool did not drain")
	}
}
