package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/cartflow-backend/pkg/config"
	"github.com/angelmondragon/cartflow-backend/pkg/logger"
	"github.com/angelmondragon/cartflow-backend/pkg/outbox/registry"
)

const (
	SinkPubSub   = "pubsub"
	SinkRabbitMQ = "rabbitmq"

	breakerTripFailures = 5
	breakerOpenTimeout  = 30 * time.Second
)

// Message is a resolved outbox row ready for delivery.
type Message struct {
	Topic      string
	RoutingKey string
	Body       []byte
	Attributes map[string]string
}

// Sink delivers messages to a broker.
type Sink interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
	Ping(ctx context.Context) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type pubSubSink struct {
	client  pubSubClient
	factory publisherFactory
}

func newPubSubSink(client pubSubClient, factory publisherFactory) *pubSubSink {
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPubPublisher(client.Publisher(topic))
		}
	}
	return &pubSubSink{client: client, factory: factory}
}

func (s *pubSubSink) Name() string { return SinkPubSub }

func (s *pubSubSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *pubSubSink) Publish(ctx context.Context, msg Message) error {
	pub := s.factory(msg.Topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", msg.Topic))
	}
	result := pub.Publish(ctx, &gcppubsub.Message{Data: msg.Body, Attributes: msg.Attributes})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", msg.Topic))
	}
	_, err := result.Get(ctx)
	return err
}

type amqpPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, headers map[string]string) error
	Ping(ctx context.Context) error
}

type rabbitSink struct {
	client amqpPublisher
}

func newRabbitSink(client amqpPublisher) *rabbitSink {
	return &rabbitSink{client: client}
}

func (s *rabbitSink) Name() string { return SinkRabbitMQ }

func (s *rabbitSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *rabbitSink) Publish(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.RoutingKey) == "" {
		return registry.NewNonRetryableError(errors.New("routing key is required"))
	}
	return s.client.Publish(ctx, msg.RoutingKey, msg.Body, msg.Attributes)
}

// breakerSink stops hammering a failing broker. Non-retryable errors are
// payload problems and do not count against the broker.
type breakerSink struct {
	next Sink
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func newBreakerSink(next Sink, logg *logger.Logger) *breakerSink {
	settings := gobreaker.Settings{
		Name:    next.Name(),
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripFailures
		},
		IsSuccessful: func(err error) bool {
			var nonRetry registry.NonRetryableError
			return err == nil || errors.As(err, &nonRetry)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"sink": name,
				"from": from.String(),
				"to":   to.String(),
			})
			logg.Warn(ctx, "outbox.sink.breaker_state")
		},
	}
	return &breakerSink{next: next, cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

func (s *breakerSink) Name() string { return s.next.Name() }

func (s *breakerSink) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *breakerSink) Publish(ctx context.Context, msg Message) error {
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.next.Publish(ctx, msg)
	})
	return err
}

func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func validateSink(cfg config.OutboxConfig) (string, error) {
	sink := strings.ToLower(strings.TrimSpace(cfg.Sink))
	switch sink {
	case "", SinkPubSub:
		return SinkPubSub, nil
	case SinkRabbitMQ:
		return SinkRabbitMQ, nil
	default:
		return "", fmt.Errorf("unsupported outbox sink %q", cfg.Sink)
	}
}

func newGCPPubPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
