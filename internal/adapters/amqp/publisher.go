// Package amqp publishes booking events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqplib "github.com/rabbitmq/amqp091-go"

	"github.com/groupventure/booking-api/internal/ports/out/events"
)

const defaultExchange = "booking.events"

// Publisher implements events.Publisher over a single AMQP channel. Events
// are published persistent with the event type as the routing key.
type Publisher struct {
	exchange string

	mu   sync.Mutex
	conn *amqplib.Connection
	ch   *amqplib.Channel
}

// NewPublisher dials url, opens a channel, and declares the exchange.
// Close must be called when the publisher is no longer needed.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = defaultExchange
	}
	conn, err := amqplib.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{exchange: exchange, conn: conn, ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, ev events.BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("amqp channel closed")
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(
		pubCtx,
		p.exchange,
		string(ev.Type),
		false,
		false,
		amqplib.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqplib.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
