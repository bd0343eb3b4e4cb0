// Package broker declares the AMQP topology and implements publish-with-retry
// for the scheduler's dispatch pipeline, matching the direct-exchange plus
// dead-letter-ring topology the fetch pipeline workers consume from.
package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonesrussell/crawlsched/internal/domain"
)

// deadLetterTTLMillis is the message TTL applied to every dead-letter queue.
// The DLQ has no dead-letter exchange of its own, so a message the DLQ
// consumer has not taken within 3s expires and is discarded.
const deadLetterTTLMillis = 3000

// DeclareTopology declares the exchange/queue/binding for every known event
// and its dead-letter twin. Idempotent: safe to call on every process start.
func DeclareTopology(ch *amqp.Channel) error {
	for _, event := range domain.AllEvents() {
		topic := domain.Topics[event]
		if err := declareMain(ch, topic); err != nil {
			return fmt.Errorf("declare topology for %s: %w", event, err)
		}
		if err := declareDeadLetter(ch, topic); err != nil {
			return fmt.Errorf("declare dead-letter topology for %s: %w", event, err)
		}
	}
	return nil
}

func declareMain(ch *amqp.Channel, topic domain.Topic) error {
	dl := topic.DeadLetter()

	if err := ch.ExchangeDeclare(topic.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", topic.Exchange, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    dl.Exchange,
		"x-dead-letter-routing-key": dl.RoutingKey,
	}
	if _, err := ch.QueueDeclare(topic.Queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", topic.Queue, err)
	}

	if err := ch.QueueBind(topic.Queue, topic.RoutingKey, topic.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", topic.Queue, err)
	}
	return nil
}

func declareDeadLetter(ch *amqp.Channel, topic domain.Topic) error {
	dl := topic.DeadLetter()

	if err := ch.ExchangeDeclare(dl.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange %s: %w", dl.Exchange, err)
	}

	args := amqp.Table{"x-message-ttl": int32(deadLetterTTLMillis)}
	if _, err := ch.QueueDeclare(dl.Queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare dead-letter queue %s: %w", dl.Queue, err)
	}

	if err := ch.QueueBind(dl.Queue, dl.RoutingKey, dl.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue %s: %w", dl.Queue, err)
	}
	return nil
}
