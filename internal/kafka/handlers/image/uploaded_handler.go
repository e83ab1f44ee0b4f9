package image

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/model"
	"github.com/aliskhannn/photo-pipeline/internal/notifier"
	"github.com/aliskhannn/photo-pipeline/internal/pipeline"
	"github.com/aliskhannn/photo-pipeline/internal/publisher"
)

// ErrCallbackFailed is returned when derivatives were published but the
// application rejected or never received the metadata update.
var ErrCallbackFailed = errors.New("metadata callback failed")

// objectCreatedPrefix matches S3 and MinIO object-created event names,
// e.g. "ObjectCreated:Put" and "s3:ObjectCreated:Put".
const objectCreatedPrefix = "ObjectCreated:"

// processor defines the interface for running an upload through the pipeline.
type processor interface {
	Process(ctx context.Context, ref model.ObjectRef) (notifier.Result, error)
}

// UploadedHandler handles MinIO bucket notifications delivered over Kafka.
type UploadedHandler struct {
	pipeline processor
}

// NewUploadedHandler creates a new handler running uploads through p.
func NewUploadedHandler(p processor) *UploadedHandler {
	return &UploadedHandler{pipeline: p}
}

// Handle decodes a bucket notification and processes every newly created
// original in it. Derivatives and non-create events are skipped.
func (h *UploadedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event events.S3Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("unmarshal notification: %w", err)
	}

	for _, record := range event.Records {
		ref := pipeline.RefFromRecord(record)

		if !isObjectCreated(record.EventName) || publisher.IsDerivativeKey(ref.Key) {
			zlog.Logger.Debug().
				Str("event", record.EventName).
				Str("key", ref.Key).
				Msg("skipping notification record")
			continue
		}

		res, err := h.pipeline.Process(ctx, ref)
		if err != nil {
			return fmt.Errorf("process %s/%s: %w", ref.Bucket, ref.Key, err)
		}

		if !res.OK() {
			return fmt.Errorf("%w: %s/%s: status %d: %s", ErrCallbackFailed, ref.Bucket, ref.Key, res.StatusCode, res.Body)
		}

		zlog.Logger.Info().
			Str("bucket", ref.Bucket).
			Str("key", ref.Key).
			Msg("upload processed")
	}

	return nil
}

func isObjectCreated(eventName string) bool {
	return strings.HasPrefix(strings.TrimPrefix(eventName, "s3:"), objectCreatedPrefix)
}
