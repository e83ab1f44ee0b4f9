package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/api/handlers/photo"
	"github.com/aliskhannn/photo-pipeline/internal/api/router"
	"github.com/aliskhannn/photo-pipeline/internal/api/server"
	"github.com/aliskhannn/photo-pipeline/internal/config"
	"github.com/aliskhannn/photo-pipeline/internal/database"
	photorepo "github.com/aliskhannn/photo-pipeline/internal/repository/photo"
	photosvc "github.com/aliskhannn/photo-pipeline/internal/service/photo"
	"github.com/aliskhannn/photo-pipeline/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")
	if err := cfg.ValidateReceiver(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("invalid configuration")
	}

	gin.SetMode(gin.ReleaseMode)

	// Open the photo store; closers run on shutdown.
	var repo *photorepo.Repository
	var closers []func() error

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		repo = photorepo.NewRepository(db.Master)
		closers = append(closers, db.Master.Close)
		for _, s := range db.Slaves {
			closers = append(closers, s.Close)
		}
	default:
		db, err := database.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to open database")
		}
		repo = photorepo.NewRepository(db)
		closers = append(closers, db.Close)
	}

	urls := storage.URLBuilder{
		CDNDomain: cfg.Storage.CDNDomain,
		Bucket:    cfg.Storage.DerivativesBucket,
		Region:    cfg.AWS.Region,
	}

	h := photo.NewHandler(photosvc.NewService(repo, urls), cfg.Callback.WebhookSecret)

	s := server.New(":"+cfg.Server.HTTPPort, router.Setup(h))
	go func() {
		zlog.Logger.Info().Str("addr", s.Addr).Msg("starting receiver")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close database")
		}
	}
}
