package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/foldershare/internal/auth"
	"github.com/abduss/foldershare/internal/blob"
	"github.com/abduss/foldershare/internal/config"
	"github.com/abduss/foldershare/internal/file"
	"github.com/abduss/foldershare/internal/folder"
	"github.com/abduss/foldershare/internal/logger"
	"github.com/abduss/foldershare/internal/metrics"
	"github.com/abduss/foldershare/internal/server"
	"github.com/abduss/foldershare/internal/share"
	"github.com/abduss/foldershare/internal/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	zl, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		zl.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	applied, err := storage.Migrate(ctx, dbPool)
	if err != nil {
		zl.Fatal("migrate schema", zap.Error(err))
	}
	if len(applied) > 0 {
		zl.Info("schema migrated", zap.Strings("migrations", applied))
	}

	blobBackend, err := blob.New(ctx, cfg.Blob)
	if err != nil {
		zl.Fatal("open blob store", zap.String("backend", cfg.Blob.Backend), zap.Error(err))
	}

	authRepo := auth.NewRepository(dbPool)
	authService := auth.NewService(authRepo, cfg.Auth)

	folderRepo := folder.NewRepository(dbPool)
	fileRepo := file.NewRepository(dbPool)
	shareRepo := share.NewRepository(dbPool)
	txManager := storage.NewTxManager(dbPool)

	folderService := folder.NewService(folderRepo, fileRepo, shareRepo, txManager, blobBackend, zl.Named("folder"))
	fileService := file.NewService(fileRepo, folderService, blobBackend, cfg.Upload, cfg.Share.LinkTTL, zl.Named("file"))
	shareService := share.NewService(shareRepo, folderService, fileRepo, blobBackend, cfg.Share, zl.Named("share"))

	limiter := server.NewRateLimiter(cfg.Share.RatePerSecond, cfg.Share.RateBurst)
	go limiter.Run(ctx, time.Minute, 3*time.Minute)

	metrics.InitMetrics()

	router := server.NewRouter(server.Dependencies{
		Config:        cfg,
		Log:           zl,
		DB:            dbPool,
		Blob:          blobBackend,
		AuthService:   authService,
		FolderService: folderService,
		FileService:   fileService,
		ShareService:  shareService,
		ShareLimiter:  limiter,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zl.Info("FolderShare API listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("blob_backend", cfg.Blob.Backend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zl.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}
