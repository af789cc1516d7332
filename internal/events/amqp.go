package events

import (
	"context"       // Request scoped cancellation
	"encoding/json" // Message encoding
	"fmt"           // Error wrapping

	amqp "github.com/rabbitmq/amqp091-go" // RabbitMQ client
)

// DefaultExchange receives every event, routed by event type
const DefaultExchange = "coupon_tracker.events"

// AMQPPublisher publishes persistent JSON messages to a RabbitMQ topic exchange
type AMQPPublisher struct {
	conn     *amqp.Connection // Shared connection, safe for concurrent use
	exchange string           // Topic exchange name
}

// DialAMQP connects to RabbitMQ and declares the exchange
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()
	// Durable so the exchange survives broker restarts
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return &AMQPPublisher{conn: conn, exchange: exchange}, nil
}

// Publish sends one event on its own channel; amqp channels must not be shared between goroutines
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		p.exchange, // exchange
		ev.Type,    // routing key
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close closes the connection
func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}
