package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection wraps a dialed AMQP connection and its default channel,
// declaring the full topology on construction so every process (intake,
// scheduler, dlqring, fetcher, discovery) converges on the same exchanges
// and queues regardless of start order.
type Connection struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker at url, opens a channel, and declares the
// topology.
func Dial(url string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if declareErr := DeclareTopology(ch); declareErr != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, declareErr
	}

	return &Connection{conn: conn, ch: ch}, nil
}

// Channel returns the underlying AMQP channel.
func (c *Connection) Channel() *amqp.Channel { return c.ch }

// Close closes the channel then the connection.
func (c *Connection) Close() error {
	if err := c.ch.Close(); err != nil {
		_ = c.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
