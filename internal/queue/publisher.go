package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/config"
)

// Publisher sends booking events to RabbitMQ over one long-lived channel.
// The connection is dialled on first use and re-dialled after it breaks.
// Errors are logged and returned so callers can ignore them without
// interrupting the request flow.
type Publisher struct {
	cfg config.QueueConfig
	log *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(cfg config.QueueConfig, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{cfg: cfg, log: log}
}

// declareTopology makes sure the queue (and the exchange with its binding,
// when one is configured) exists.  Everything is durable so messages
// survive broker restarts.
func declareTopology(ch *amqp.Channel, cfg config.QueueConfig) error {
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if cfg.Exchange == "" {
		return nil
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, "booking.*", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

// routing returns the exchange and key for ev.  Without an exchange the
// default exchange routes by queue name.
func routing(cfg config.QueueConfig, ev BookingEvent) (string, string) {
	if cfg.Exchange == "" {
		return "", cfg.Queue
	}
	return cfg.Exchange, string(ev.Kind)
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()

	conn, err := amqp.Dial(p.cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareTopology(ch, p.cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// Publish sends ev as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.Warn("rabbitmq unavailable", zap.Error(err))
		return err
	}
	exchange, key := routing(p.cfg, ev)
	err = ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Kind),
		MessageId:    ev.BookingID + ":" + string(ev.Kind) + ":" + ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		p.log.Warn("rabbitmq publish failed",
			zap.String("kind", string(ev.Kind)), zap.String("booking_id", ev.BookingID), zap.Error(err))
		p.closeLocked()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
