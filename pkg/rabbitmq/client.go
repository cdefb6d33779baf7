package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"

	"github.com/angelmondragon/cartflow-backend/pkg/config"
	"github.com/angelmondragon/cartflow-backend/pkg/logger"
)

const (
	ExchangeType = "topic"

	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

type dialFunc func(url string) (*amqp.Connection, error)

// Client owns one AMQP connection and channel bound to the order events exchange.
type Client struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewClient dials the broker with a short retry and declares a durable topic exchange.
func NewClient(ctx context.Context, cfg config.RabbitMQConfig, logg *logger.Logger) (*Client, error) {
	return newClient(ctx, cfg, logg, amqp.Dial)
}

func newClient(ctx context.Context, cfg config.RabbitMQConfig, logg *logger.Logger, dial dialFunc) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if cfg.Exchange == "" {
		return nil, errors.New("rabbitmq exchange is required")
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err = dial(cfg.URL)
		if err == nil {
			break
		}
		if logg != nil {
			logCtx := logg.WithFields(ctx, map[string]any{"attempt": attempt, "error": err.Error()})
			logg.Warn(logCtx, "rabbitmq dial failed")
		}
		if attempt == dialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("could not open channel: %w", err), conn.Close())
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("could not declare exchange: %w", err), ch.Close(), conn.Close())
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "exchange", cfg.Exchange), "rabbitmq client initialized")
	}

	return &Client{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

// Publish sends a persistent JSON message to the exchange.
func (c *Client) Publish(ctx context.Context, routingKey string, body []byte, headers map[string]string) error {
	if c == nil || c.ch == nil {
		return errors.New("rabbitmq client not initialized")
	}
	table := amqp.Table{}
	for k, v := range headers {
		table[k] = v
	}
	return c.ch.PublishWithContext(ctx,
		c.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    headers["event_id"],
			Type:         headers["event_type"],
			Headers:      table,
			Body:         body,
		},
	)
}

// Ping reports whether the connection and channel are still open.
func (c *Client) Ping(context.Context) error {
	if c == nil || c.conn == nil || c.ch == nil {
		return errors.New("rabbitmq client not initialized")
	}
	if c.conn.IsClosed() || c.ch.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.ch != nil {
		err = multierr.Append(err, c.ch.Close())
	}
	if c.conn != nil {
		err = multierr.Append(err, c.conn.Close())
	}
	return err
}

// Exchange returns the declared exchange name.
func (c *Client) Exchange() string {
	if c == nil {
		return ""
	}
	return c.exchange
}
