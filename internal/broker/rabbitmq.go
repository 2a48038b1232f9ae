// Package broker forwards lead domain events to a RabbitMQ topic exchange so
// downstream systems can react without polling the API.
package broker

import (
	"fmt"

	"crm_backend/platform/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection owns the AMQP connection and the channel events are published on.
type Connection struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker and declares the durable topic exchange.
func Dial(cfg config.BrokerConfig) (*Connection, error) {
	conn, err := amqp.Dial(cfg.GetAMQPURL())
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.GetAMQPExchange(), amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.GetAMQPExchange(), err)
	}

	return &Connection{conn: conn, ch: ch}, nil
}

// Channel returns the channel publishers write to.
func (c *Connection) Channel() *amqp.Channel {
	return c.ch
}

func (c *Connection) Close() error {
	if err := c.ch.Close(); err != nil {
		_ = c.conn.Close()
		return err
	}
	return c.conn.Close()
}
