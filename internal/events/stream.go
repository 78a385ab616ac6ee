package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "incapacity-claims/common/redis"
	"incapacity-claims/internal/domain"
)

// StreamEmitter appends events to a Redis stream. When XADD fails the event
// is handed to the fallback emitter so side effects are not lost.
type StreamEmitter struct {
	client   *redis.Client
	stream   string
	fallback Emitter
	logger   *zap.Logger
}

func NewStreamEmitter(client *redis.Client, stream string, fallback Emitter, logger *zap.Logger) *StreamEmitter {
	return &StreamEmitter{client: client, stream: stream, fallback: fallback, logger: logger}
}

func (e *StreamEmitter) Emit(ctx context.Context, ev domain.ClaimEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	id, err := rediscommon.PublishJSONToStream(ctx, e.client, e.stream, ev)
	if err != nil {
		e.logger.Warn("failed to publish claim event, delivering locally",
			zap.String("stream", e.stream),
			zap.String("event_id", ev.EventID),
			zap.Error(err),
		)
		if e.fallback != nil {
			e.fallback.Emit(ctx, ev)
		}
		return
	}
	e.logger.Debug("claim event published",
		zap.String("stream", e.stream),
		zap.String("message_id", id),
		zap.String("kind", string(ev.Kind)),
	)
}

// StreamConsumer reads claim events with a consumer group and runs the
// handlers for each. Messages are acknowledged after all handlers ran, even
// when some failed; handler errors are logged.
type StreamConsumer struct {
	client    *redis.Client
	stream    string
	group     string
	consumer  string
	batchSize int64
	block     time.Duration
	handlers  []Handler
	logger    *zap.Logger
}

func NewStreamConsumer(client *redis.Client, stream, group, consumer string, logger *zap.Logger, handlers ...Handler) *StreamConsumer {
	return &StreamConsumer{
		client:    client,
		stream:    stream,
		group:     group,
		consumer:  consumer,
		batchSize: 20,
		block:     2 * time.Second,
		handlers:  handlers,
		logger:    logger,
	}
}

// Start consumes until ctx is canceled.
func (c *StreamConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.client, c.stream, c.group); err != nil {
		return err
	}
	c.logger.Info("claim event consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.group),
		zap.String("consumer_name", c.consumer),
	)

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to consume claim events", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
	}
}

// Poll reads one batch, handles and acknowledges it. It returns the number of
// messages processed.
func (c *StreamConsumer) Poll(ctx context.Context) (int, error) {
	messages, err := rediscommon.ReadFromStream(ctx, c.client, c.stream, c.group, c.consumer, c.batchSize, c.block)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream %s: %w", c.stream, err)
	}

	for _, msg := range messages {
		ev, err := decodeEvent(msg.Values)
		if err != nil {
			c.logger.Error("dropping undecodable claim event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		} else {
			for _, h := range c.handlers {
				invoke(ctx, h, ev, c.logger)
			}
		}
		if err := rediscommon.Ack(ctx, c.client, c.stream, c.group, msg.ID); err != nil {
			c.logger.Warn("failed to ack claim event", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	return len(messages), nil
}

func decodeEvent(values map[string]interface{}) (domain.ClaimEvent, error) {
	var ev domain.ClaimEvent
	raw, ok := values["data"].(string)
	if !ok {
		return ev, fmt.Errorf("message has no data field")
	}
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return ev, fmt.Errorf("failed to decode claim event: %w", err)
	}
	return ev, nil
}
