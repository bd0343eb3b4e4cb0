// Package dlq implements the dead-letter ring: one consumer per event that
// watches its "_dead_letter" queue and either republishes a message back to
// the main queue or drops it once it has bounced too many times.
package dlq

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/logger"
)

// MaxDeaths is how many times a message may land on a dead-letter queue
// before the ring drops it rather than republishing.
const MaxDeaths = 3

const xDeathHeader = "x-death"

// Republisher is the subset of internal/broker.Publisher the ring needs,
// narrowed so ring logic can be tested without a live channel.
type Republisher interface {
	Publish(ctx context.Context, topic domain.Topic, body any, headers amqp.Table) error
}

// Ring owns one consumer goroutine per known event, each watching that
// event's dead-letter queue.
type Ring struct {
	channel   *amqp.Channel
	publisher Republisher
	log       logger.Interface
}

// NewRing constructs a Ring. channel is used to open a Consume stream per
// dead-letter queue; publisher is used to republish onto the main queue.
func NewRing(channel *amqp.Channel, publisher Republisher, log logger.Interface) *Ring {
	return &Ring{channel: channel, publisher: publisher, log: log}
}

// Run starts one consumer per event and blocks until ctx is cancelled or
// every consumer's delivery channel has closed.
func (r *Ring) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(domain.AllEvents()))

	for _, event := range domain.AllEvents() {
		topic := domain.Topics[event]
		dl := topic.DeadLetter()

		deliveries, err := r.channel.Consume(dl.Queue, "", false, false, false, false, nil)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func(topic domain.Topic, deliveries <-chan amqp.Delivery) {
			defer wg.Done()
			if err := r.consume(ctx, topic, deliveries); err != nil {
				errs <- err
			}
		}(topic, deliveries)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Ring) consume(ctx context.Context, topic domain.Topic, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			r.handle(ctx, topic, d)
		}
	}
}

// handle applies the ring's death-count rule to a single dead-lettered
// delivery: drop at MaxDeaths, otherwise republish onto the main queue
// carrying the same headers forward.
func (r *Ring) handle(ctx context.Context, topic domain.Topic, d amqp.Delivery) {
	count := deathCount(d.Headers)
	r.log.Info("message received from dead letter queue",
		"routing_key", d.RoutingKey, "count", count)

	if count >= MaxDeaths {
		r.log.Warn("maximum retries reached, dropping message",
			"routing_key", d.RoutingKey, "count", count)
		_ = d.Ack(false)
		return
	}

	if err := r.publisher.Publish(ctx, topic, json.RawMessage(d.Body), d.Headers); err != nil {
		r.log.WithError(err).Error("failed to republish dead-lettered message")
		_ = d.Nack(false, true)
		return
	}

	r.log.Info("republished message to main queue", "routing_key", topic.RoutingKey)
	_ = d.Ack(false)
}

// deathCount reads the count recorded by the most recent x-death entry.
// Absent or malformed headers are treated as a first death (count 0) so a
// message is never dropped on header-shape ambiguity alone.
func deathCount(headers amqp.Table) int64 {
	raw, ok := headers[xDeathHeader]
	if !ok {
		return 0
	}
	deaths, ok := raw.([]any)
	if !ok || len(deaths) == 0 {
		return 0
	}
	entry, ok := deaths[0].(amqp.Table)
	if !ok {
		return 0
	}
	switch v := entry["count"].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}
