package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/config"
	"github.com/aliskhannn/photo-pipeline/internal/infra/kafka/consumer"
	imagemsg "github.com/aliskhannn/photo-pipeline/internal/kafka/handlers/image"
	"github.com/aliskhannn/photo-pipeline/internal/metadata"
	"github.com/aliskhannn/photo-pipeline/internal/notifier"
	"github.com/aliskhannn/photo-pipeline/internal/pipeline"
	"github.com/aliskhannn/photo-pipeline/internal/processor"
	"github.com/aliskhannn/photo-pipeline/internal/publisher"
	"github.com/aliskhannn/photo-pipeline/internal/storage/file"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")
	cfg.Storage.Driver = config.DriverMinIO
	if err := cfg.ValidateWorker(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Retry strategy for Kafka fetches and commits.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Initialize derivative storage (MinIO).
	storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.DerivativesBucket, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Callback retry policy.
	policy := notifier.DefaultPolicy()
	policy.MaxAttempts = cfg.Callback.Attempts
	policy.Backoff = cfg.Callback.Backoff

	p := pipeline.New(
		storage,
		metadata.New(),
		processor.New(processor.Config{
			Web:   processor.Options{MaxSide: cfg.Processor.MaxWeb, Quality: cfg.Processor.WebQuality},
			Thumb: processor.Options{MaxSide: cfg.Processor.MaxThumb, Quality: cfg.Processor.ThumbQuality},
		}),
		publisher.New(storage),
		notifier.New(cfg.Callback.AppBaseURL, cfg.Callback.WebhookSecret, &http.Client{Timeout: cfg.Callback.Timeout}, policy),
	)

	// Kafka consumer for MinIO bucket notifications.
	uploadedHandler := imagemsg.NewUploadedHandler(p)
	c := consumer.New(&cfg.Kafka, strategy, uploadedHandler)

	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for the consumer to finish the message in flight.
	wg.Wait()

	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
