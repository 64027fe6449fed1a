package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends notifications to a RabbitMQ topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	exchange string
	log      *zerolog.Logger

	mu sync.Mutex
	ch channel
}

// Dial connects to url and declares a durable topic exchange.
func Dial(url, exchange string, log *zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to RabbitMQ")
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		log.Error().Err(err).Msg("failed to open RabbitMQ channel")
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		log.Error().Err(err).Msg("failed to declare exchange")
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Info().Str("exchange", exchange).Msg("RabbitMQ publisher initialized")
	return &Publisher{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

func newPublisher(ch channel, exchange string, log *zerolog.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, log: log}
}

// Close closes the channel and connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.log.Info().Msg("RabbitMQ connection closed")
}

func (p *Publisher) EventCancelled(ctx context.Context, event model.Event, registrants []model.Registration) error {
	return p.publish(ctx, KeyEventCancelled, event.ID, cancelledMessage(event, registrants))
}

func (p *Publisher) RegistrationPromoted(ctx context.Context, event model.Event, reg model.Registration) error {
	return p.publish(ctx, KeyRegistrationPromoted, reg.ID, promotedMessage(event, reg))
}

func (p *Publisher) publish(ctx context.Context, key, id string, v any) error {
	body, err := encode(v)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    id,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	p.mu.Unlock()

	if err != nil {
		p.log.Error().Err(err).Str("routing_key", key).Msg("failed to publish notification")
		return fmt.Errorf("publish %s: %w", key, err)
	}
	p.log.Debug().Str("routing_key", key).Str("id", id).Msg("notification published")
	return nil
}

var (
	_ Notifier = (*Publisher)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
