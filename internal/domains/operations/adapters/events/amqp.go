package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

const (
	// ExchangeName is the topic exchange that receives ledger events.
	ExchangeName = "bookdist.events"
	exchangeType = "topic"

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
	confirmTimeout = 5 * time.Second
)

// confirmation is the broker acknowledgement of one publishing.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// confirmChannel publishes to the exchange in confirm mode.
type confirmChannel interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) (confirmation, error)
	Close() error
}

// channelAdapter tracks each publishing with its own deferred confirmation, so no listener
// outlives the publish that created it.
type channelAdapter struct {
	channel *amqp.Channel
}

func (a channelAdapter) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) (confirmation, error) {
	deferred, err := a.channel.PublishWithDeferredConfirmWithContext(ctx, ExchangeName, routingKey, false, false, msg)
	if err != nil {
		return nil, err
	}
	if deferred == nil {
		return nil, errors.New("channel is not in confirm mode")
	}
	return deferred, nil
}

func (a channelAdapter) Close() error {
	return a.channel.Close()
}

// AMQPPublisher sends events to RabbitMQ with publisher confirms. Routing keys are event types.
type AMQPPublisher struct {
	conn           *amqp.Connection
	channel        confirmChannel
	log            *slog.Logger
	confirmTimeout time.Duration
}

// NewAMQPPublisher dials url, declares the exchange and enables confirms.
func NewAMQPPublisher(url string, log *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(ExchangeName, exchangeType, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	p := newAMQPPublisher(channelAdapter{channel: channel}, log)
	p.conn = conn
	p.log.Info("connected to RabbitMQ", slog.String("exchange", ExchangeName))
	return p, nil
}

func newAMQPPublisher(channel confirmChannel, log *slog.Logger) *AMQPPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{channel: channel, log: log, confirmTimeout: confirmTimeout}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event domain.Event) error {
	env := NewEnvelope(ctx, event)
	body, err := env.marshal()
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now(),
		MessageId:     env.EventID,
		CorrelationId: env.CorrelationID,
		Body:          body,
		Headers: amqp.Table{
			"event_type":    env.EventType,
			"event_version": env.EventVersion,
		},
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff = min(backoff*2, maxBackoff)
			}
		}

		confirm, err := p.channel.Publish(ctx, env.EventType, msg)
		if err != nil {
			lastErr = err
			p.log.Warn("failed to publish event, retrying", slog.Int("attempt", attempt+1), slog.String("error", err.Error()))
			continue
		}

		acked, err := p.waitConfirm(ctx, confirm)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			lastErr = errors.New("confirmation timeout")
		case acked:
			p.log.Debug("event published",
				slog.String("event_id", env.EventID),
				slog.String("event_type", env.EventType),
			)
			return nil
		default:
			lastErr = errors.New("event not acknowledged")
		}
		p.log.Warn("event publish not confirmed, retrying", slog.Int("attempt", attempt+1), slog.String("error", lastErr.Error()))
	}

	p.log.Error("failed to publish event after retries",
		slog.String("event_id", env.EventID),
		slog.String("event_type", env.EventType),
		slog.Int("attempts", maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return fmt.Errorf("failed to publish event after %d attempts: %w", maxRetries, lastErr)
}

func (p *AMQPPublisher) waitConfirm(ctx context.Context, confirm confirmation) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.confirmTimeout)
	defer cancel()
	return confirm.WaitContext(waitCtx)
}

func (p *AMQPPublisher) Close() error {
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

var _ ports.EventPublisher = (*AMQPPublisher)(nil)
