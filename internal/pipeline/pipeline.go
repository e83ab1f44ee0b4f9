// Package pipeline runs one upload through metadata extraction,
// derivative generation, publishing and the application callback.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/model"
	"github.com/aliskhannn/photo-pipeline/internal/notifier"
	"github.com/aliskhannn/photo-pipeline/internal/publisher"
)

// ErrNoRecords is returned for an event without records.
var ErrNoRecords = errors.New("event contains no records")

// loader fetches an original.
type loader interface {
	Load(ctx context.Context, bucket, key string) ([]byte, error)
}

// extractor reads capture metadata. It never fails.
type extractor interface {
	Extract(data []byte) model.Metadata
}

// generator produces the web and thumbnail derivatives.
type generator interface {
	Generate(data []byte) (model.Derivative, model.Derivative, error)
}

// derivativePublisher uploads derivatives and returns their keys.
type derivativePublisher interface {
	Publish(ctx context.Context, originalKey string, web, thumb []byte) (string, string, error)
}

// callback notifies the main application.
type callback interface {
	Notify(ctx context.Context, update model.MetadataUpdate) notifier.Result
}

// Response is the invocation result returned to the trigger.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Pipeline processes uploaded originals.
type Pipeline struct {
	loader    loader
	extractor extractor
	generator generator
	publisher derivativePublisher
	notifier  callback
}

// New creates a new Pipeline.
func New(l loader, e extractor, g generator, p derivativePublisher, n callback) *Pipeline {
	return &Pipeline{
		loader:    l,
		extractor: e,
		generator: g,
		publisher: p,
		notifier:  n,
	}
}

// Process loads the original at ref, publishes its derivatives and
// notifies the application. Storage and decode failures are returned as
// errors; the callback outcome is returned as the result, failed or not.
func (p *Pipeline) Process(ctx context.Context, ref model.ObjectRef) (notifier.Result, error) {
	log := zlog.Logger.With().
		Str("invocation_id", invocationID(ctx)).
		Str("bucket", ref.Bucket).
		Str("key", ref.Key).
		Logger()

	log.Info().Msg("processing original")

	data, err := p.loader.Load(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return notifier.Result{}, fmt.Errorf("load original: %w", err)
	}

	meta := p.extractor.Extract(data)
	logMetadata(&log, meta)

	web, thumb, err := p.generator.Generate(data)
	if err != nil {
		return notifier.Result{}, fmt.Errorf("generate derivatives: %w", err)
	}

	web.Key, thumb.Key, err = p.publisher.Publish(ctx, ref.Key, web.Bytes, thumb.Bytes)
	if err != nil {
		return notifier.Result{}, fmt.Errorf("publish derivatives: %w", err)
	}

	log.Info().
		Str("web_key", web.Key).
		Str("thumb_key", thumb.Key).
		Int("width", web.Width).
		Int("height", web.Height).
		Msg("derivatives published")

	res := p.notifier.Notify(ctx, NewUpdate(ref, meta, web, thumb))

	if !res.OK() {
		log.Error().
			Int("status", res.StatusCode).
			Str("body", res.Body).
			Msg("callback failed")
	} else {
		log.Info().Int("status", res.StatusCode).Msg("callback delivered")
	}

	return res, nil
}

// NewUpdate builds the callback payload for published derivatives.
// Width and height are those of the web derivative.
func NewUpdate(ref model.ObjectRef, meta model.Metadata, web, thumb model.Derivative) model.MetadataUpdate {
	return model.MetadataUpdate{
		S3KeyOriginal: ref.Key,
		S3KeyWeb:      web.Key,
		S3KeyThumb:    thumb.Key,
		TakenAt:       meta.TakenAt,
		GPSLat:        meta.GPSLat,
		GPSLng:        meta.GPSLng,
		Width:         web.Width,
		Height:        web.Height,
	}
}

// HandleS3Event is the Lambda entry point for S3 object-created events.
// Only the first record is processed.
func (p *Pipeline) HandleS3Event(ctx context.Context, event events.S3Event) (Response, error) {
	if len(event.Records) == 0 {
		return Response{}, ErrNoRecords
	}

	if len(event.Records) > 1 {
		zlog.Logger.Warn().
			Int("records", len(event.Records)).
			Msg("event has more than one record, processing the first only")
	}

	ref := RefFromRecord(event.Records[0])

	if publisher.IsDerivativeKey(ref.Key) {
		zlog.Logger.Info().Str("key", ref.Key).Msg("skipping derivative object")
		return Response{StatusCode: 200, Body: "skipped derivative"}, nil
	}

	res, err := p.Process(ctx, ref)
	if err != nil {
		return Response{}, err
	}

	return Response{StatusCode: res.StatusCode, Body: res.Body}, nil
}

// RefFromRecord returns the object named by an S3 event record.
// Keys arrive URL-encoded; the decoded form is preferred.
func RefFromRecord(record events.S3EventRecord) model.ObjectRef {
	key := record.S3.Object.URLDecodedKey
	if key == "" {
		key = record.S3.Object.Key
	}

	return model.ObjectRef{Bucket: record.S3.Bucket.Name, Key: key}
}

func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}

	return uuid.NewString()
}

func logMetadata(log *zerolog.Logger, meta model.Metadata) {
	ev := log.Info()
	if meta.TakenAt != nil {
		ev = ev.Str("taken_at", *meta.TakenAt)
	}
	if meta.GPSLat != nil && meta.GPSLng != nil {
		ev = ev.Float64("gps_lat", *meta.GPSLat).Float64("gps_lng", *meta.GPSLng)
	}
	ev.Msg("metadata extracted")
}
