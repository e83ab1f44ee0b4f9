package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/config"
)

// fetchBackoff is the pause after a fetch that failed all retries.
const fetchBackoff = 500 * time.Millisecond

// uploadHandler handles a single bucket notification message.
type uploadHandler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// Consumer reads bucket notifications from Kafka and hands them to the
// upload handler one at a time.
type Consumer struct {
	Client   *wbfkafka.Consumer
	handler  uploadHandler
	cfg      *config.Kafka
	strategy retry.Strategy
}

// New creates a new Consumer.
// - cfg: Kafka configuration struct
// - s: retry strategy for fetches and commits
// - h: handler for upload notifications
func New(cfg *config.Kafka, s retry.Strategy, h uploadHandler) *Consumer {
	return &Consumer{
		Client:   wbfkafka.NewConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID),
		handler:  h,
		cfg:      cfg,
		strategy: s,
	}
}

// Consume fetches notifications until ctx is canceled. A message is
// committed only after the handler succeeds. Failed messages are logged
// and skipped: the next successful commit moves the group offset past
// them, so they are not delivered again.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().
		Str("topic", c.cfg.Topic).
		Str("group_id", c.cfg.GroupID).
		Msg("starting consumer")

	for {
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping consumer")
			return
		}

		var msg kafka.Message
		err := retry.Do(func() error {
			var fetchErr error
			msg, fetchErr = c.Client.Fetch(ctx)
			return fetchErr
		}, c.strategy)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			zlog.Logger.Err(err).Msg("failed to fetch message")
			time.Sleep(fetchBackoff)
			continue
		}

		if !c.handle(ctx, msg) {
			continue
		}

		err = retry.Do(func() error {
			return c.Client.Commit(ctx, msg)
		}, c.strategy)
		if err != nil {
			zlog.Logger.Err(err).Int64("offset", msg.Offset).Msg("failed to commit message after retries")
			continue
		}

		zlog.Logger.Debug().
			Int64("offset", msg.Offset).
			Msg("upload notification handled")
	}
}

// handle runs the handler on msg and reports whether msg should be
// committed. Failures are logged with the offset so they can be replayed
// by hand.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	if err := c.handler.Handle(ctx, msg); err != nil {
		zlog.Logger.Err(err).
			Int64("offset", msg.Offset).
			Int("partition", msg.Partition).
			Str("message", string(msg.Value)).
			Msg("failed to process upload notification, skipping")
		return false
	}

	return true
}
