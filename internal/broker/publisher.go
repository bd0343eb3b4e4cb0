package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/logger"
	"github.com/jonesrussell/crawlsched/internal/retry"
)

// Publisher publishes JSON messages onto the declared topology with
// bounded retry, matching the 3-try / 2s-2s / ≤5s backoff schedule.
type Publisher interface {
	Publish(ctx context.Context, topic domain.Topic, body any, headers amqp.Table) error
}

// ChannelPublisher is the default Publisher, backed by a single AMQP
// channel. Not safe for concurrent use across goroutines without external
// synchronization, matching amqp091-go's channel contract.
type ChannelPublisher struct {
	ch     *amqp.Channel
	log    logger.Interface
	policy retry.Config
}

// NewChannelPublisher constructs a ChannelPublisher over an open channel.
func NewChannelPublisher(ch *amqp.Channel, log logger.Interface) *ChannelPublisher {
	return &ChannelPublisher{ch: ch, log: log, policy: retry.PublishConfig()}
}

// Publish marshals body as JSON and publishes it to topic.Exchange with
// topic.RoutingKey, retrying on failure per p.policy. A message ID and a
// correlation ID are generated once per call and reused for every retry
// attempt; headers are passed through as given and are not consulted for IDs.
func (p *ChannelPublisher) Publish(ctx context.Context, topic domain.Topic, body any, headers amqp.Table) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", topic.RoutingKey, err)
	}

	messageID := uuid.NewString()
	correlationID := uuid.NewString()

	return retry.Do(ctx, p.policy, func(ctx context.Context) error {
		err := p.ch.PublishWithContext(ctx, topic.Exchange, topic.RoutingKey, false, false, amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     messageID,
			CorrelationId: correlationID,
			Headers:       headers,
			Body:          payload,
		})
		if err != nil {
			p.log.Error("failed to publish message",
				"error", err,
				"exchange", topic.Exchange,
				"routing_key", topic.RoutingKey,
			)
			return fmt.Errorf("publish to %s/%s: %w", topic.Exchange, topic.RoutingKey, err)
		}
		p.log.Info("published message",
			"exchange", topic.Exchange,
			"routing_key", topic.RoutingKey,
			"message_id", messageID,
			"correlation_id", correlationID,
		)
		return nil
	})
}
