package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/product-catalog/pkg/kafka"

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	Async        bool
}

// DefaultProducerConfig returns defaults suited to low-volume catalog events.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Async:        false,
	}
}

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes events and records publish metrics.
type Producer struct {
	writer  MessageWriter
	brokers []string
	logger  *slog.Logger
}

// NewProducer creates a producer backed by a kafka-go writer. No connection
// is made until the first publish.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		Async:                  cfg.Async,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return NewProducerWithWriter(w, cfg.Brokers, logger)
}

// NewProducerWithWriter creates a producer around an existing writer.
func NewProducerWithWriter(w MessageWriter, brokers []string, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{writer: w, brokers: brokers, logger: logger}
}

// Publish sends an event to topic keyed by its aggregate id, so every event
// for one product lands on the same partition in order.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "kafka.publish "+topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", topic),
			attribute.String("messaging.message.id", event.EventID),
		),
	)
	defer span.End()

	data, err := event.Marshal()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal")
		return fmt.Errorf("marshal event: %w", err)
	}

	headers := event.Headers()
	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(&headers))

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(event.AggregateID),
		Value:   data,
		Headers: headers,
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	ProducerPublishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	if err != nil {
		ProducerPublishErrors.WithLabelValues(topic).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "write")
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}

	ProducerMessagesPublished.WithLabelValues(topic).Inc()
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

// Ping checks that at least one configured broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers dials the given brokers and returns nil as soon as one of them
// answers a metadata request.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", lastErr)
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
