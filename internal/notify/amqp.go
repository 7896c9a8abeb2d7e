package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AMQPConfig holds the broker settings for completion messages.
type AMQPConfig struct {
	URL          string
	Exchange     string
	ExchangeType string
	RoutingKey   string
	Heartbeat    time.Duration
}

// AMQPPublisher publishes messages to one exchange with a fixed routing key.
type AMQPPublisher struct {
	cfg     AMQPConfig
	logger  zerolog.Logger
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(cfg AMQPConfig, logger *zerolog.Logger) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("notify: amqp url is required")
	}
	if cfg.ExchangeType == "" {
		cfg.ExchangeType = amqp.ExchangeTopic
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 10 * time.Second
	}
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}

	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{Heartbeat: cfg.Heartbeat, Locale: "en_US"})
	if err != nil {
		return nil, fmt.Errorf("notify: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		cfg.Exchange,     // name
		cfg.ExchangeType, // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("notify: declare exchange: %w", err)
	}
	lg.Info().Str("exchange", cfg.Exchange).Str("routing_key", cfg.RoutingKey).Msg("notify: amqp publisher ready")
	return &AMQPPublisher{cfg: cfg, logger: lg, conn: conn, channel: ch}, nil
}

// Publish sends body as a persistent message.
func (p *AMQPPublisher) Publish(ctx context.Context, body []byte, contentType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil || p.conn == nil || p.conn.IsClosed() {
		return errors.New("notify: not connected")
	}
	err := p.channel.PublishWithContext(
		ctx,
		p.cfg.Exchange,   // exchange
		p.cfg.RoutingKey, // routing key
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  contentType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("notify: publish: %w", err)
	}
	return nil
}

// Close shuts the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("notify: close channel")
		}
		p.channel = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
