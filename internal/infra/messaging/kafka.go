package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

// KafkaPublisher writes outbox events to "<prefix>.<topic>" keyed by aggregate
// id, so events of one booking land on one partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
	prefix string
}

func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{}, // Hash by key for ordering
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			logger.Error(fmt.Sprintf(msg, args...), "component", "kafka")
		}),
	}
	return &KafkaPublisher{writer: writer, prefix: cfg.TopicPrefix}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []shared.OutboxEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, toMessage(p.prefix, e))
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return errs.Wrapf(err, "failed to write %d messages", len(msgs))
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func topicName(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}

func toMessage(prefix string, e shared.OutboxEvent) kafka.Message {
	return kafka.Message{
		Topic: topicName(prefix, e.Topic),
		Key:   []byte(e.Key),
		Value: e.Payload,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.ID.String())},
			{Key: "event_type", Value: []byte(e.Topic)},
		},
	}
}

// LogPublisher is used when no brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, events []shared.OutboxEvent) error {
	for _, e := range events {
		p.logger.Info("event published",
			"event_id", e.ID,
			"topic", e.Topic,
			"key", e.Key,
			"payload", string(e.Payload))
	}
	return nil
}
