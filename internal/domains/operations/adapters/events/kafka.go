package events

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

// DefaultKafkaTopic receives ledger events when no topic is configured.
const DefaultKafkaTopic = "bookdist.operations"

// MessageWriter is the subset of a kafka writer used by the publisher.
type MessageWriter interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by customer id so a customer's events stay ordered.
type KafkaPublisher struct {
	writer MessageWriter
	log    *slog.Logger
}

// NewKafkaPublisher builds a trace-propagating writer for topic.
func NewKafkaPublisher(brokers []string, topic, serviceName string, tp trace.TracerProvider, log *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	base := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
	writer, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			semconv.MessagingDestinationNameKey.String(topic),
			attribute.String("messaging.kafka.client_id", serviceName),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka writer: %w", err)
	}
	return NewKafkaPublisherWithWriter(writer, log), nil
}

// NewKafkaPublisherWithWriter publishes through an existing writer.
func NewKafkaPublisherWithWriter(writer MessageWriter, log *slog.Logger) *KafkaPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	env := NewEnvelope(ctx, event)
	body, err := env.marshal()
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(env.Payload.CustomerID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_version", Value: []byte(env.EventVersion)},
		},
	}
	if err := p.writer.WriteMessage(ctx, msg); err != nil {
		p.log.Error("failed to publish event",
			slog.String("event_id", env.EventID),
			slog.String("event_type", env.EventType),
			slog.String("error", err.Error()),
		)
		return err
	}
	p.log.Debug("event published", slog.String("event_id", env.EventID), slog.String("event_type", env.EventType))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ ports.EventPublisher = (*KafkaPublisher)(nil)
