package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/config"
	"github.com/aliskhannn/photo-pipeline/internal/metadata"
	"github.com/aliskhannn/photo-pipeline/internal/notifier"
	"github.com/aliskhannn/photo-pipeline/internal/pipeline"
	"github.com/aliskhannn/photo-pipeline/internal/processor"
	"github.com/aliskhannn/photo-pipeline/internal/publisher"
	awss3 "github.com/aliskhannn/photo-pipeline/internal/storage/s3"
)

func main() {
	zlog.Init()

	// Lambda is configured through the environment; the file is optional.
	cfg := config.MustLoad("./config/config.yml")
	if err := cfg.ValidateWorker(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("invalid configuration")
	}

	store, err := awss3.NewFromEnv(context.Background(), cfg.AWS.Region, cfg.Storage.DerivativesBucket)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize s3 storage")
	}

	policy := notifier.DefaultPolicy()
	policy.MaxAttempts = cfg.Callback.Attempts
	policy.Backoff = cfg.Callback.Backoff

	p := pipeline.New(
		store,
		metadata.New(),
		processor.New(processor.Config{
			Web:   processor.Options{MaxSide: cfg.Processor.MaxWeb, Quality: cfg.Processor.WebQuality},
			Thumb: processor.Options{MaxSide: cfg.Processor.MaxThumb, Quality: cfg.Processor.ThumbQuality},
		}),
		publisher.New(store),
		notifier.New(cfg.Callback.AppBaseURL, cfg.Callback.WebhookSecret, &http.Client{Timeout: cfg.Callback.Timeout}, policy),
	)

	lambda.Start(p.HandleS3Event)
}
