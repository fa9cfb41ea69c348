// Package events hands committed clicks to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/linkgate/urlshortener/internal/models"
)

// ClickPublisher receives every click after its transaction has committed.
// Implementations must not block the redirect.
type ClickPublisher interface {
	PublishClick(ctx context.Context, event models.ClickEvent) error
	Close() error
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishClick(context.Context, models.ClickEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }

// KafkaPublisher writes click events to a Kafka topic asynchronously.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafkaPublisher creates a publisher for topic on brokers. Messages are
// keyed by short code so the clicks of one link stay on one partition.
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &KafkaPublisher{log: log}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   p.completed,
	}
	return p
}

// PublishClick enqueues the event. With an async writer delivery failures are
// reported to the log, not to the caller.
func (p *KafkaPublisher) PublishClick(ctx context.Context, event models.ClickEvent) error {
	msg, err := EncodeClick(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) completed(messages []kafka.Message, err error) {
	if err != nil {
		p.log.Warn("Failed to deliver click events", zap.Int("count", len(messages)), zap.Error(err))
	}
}

// EncodeClick builds the Kafka message for a click event.
func EncodeClick(event models.ClickEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode click event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.ShortCode),
		Value: value,
		Time:  event.ClickedAt,
	}, nil
}

// New returns a KafkaPublisher when brokers are configured and a NoopPublisher
// otherwise.
func New(brokers []string, topic string, log *zap.Logger) ClickPublisher {
	if len(brokers) == 0 {
		return NoopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic, log)
}
