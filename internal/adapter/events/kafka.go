package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// messageWriter is the subset of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes domain events as JSON messages.
// The topic of each message is the configured prefix followed by the event topic.
type KafkaPublisher struct {
	writer messageWriter
	prefix string
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to brokers
func NewKafkaPublisher(brokers []string, topicPrefix string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           200 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, topicPrefix, logger)
}

func newKafkaPublisher(w messageWriter, topicPrefix string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, prefix: topicPrefix, logger: logger}
}

// Publish marshals event and writes it keyed by the event's user, so a user's
// events stay ordered within one partition
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.prefix + topic,
		Key:   eventKey(event),
		Value: data,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", msg.Topic, err)
	}

	p.logger.Debug("event published", zap.String("topic", msg.Topic), zap.Int("bytes", len(data)))
	return nil
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func eventKey(event any) []byte {
	switch e := event.(type) {
	case domain.GoalStatusChanged:
		return []byte(e.UserID)
	case *domain.GoalStatusChanged:
		return []byte(e.UserID)
	case domain.TransactionRecorded:
		return []byte(e.UserID)
	case *domain.TransactionRecorded:
		return []byte(e.UserID)
	}
	return nil
}

var _ domain.EventPublisher = (*KafkaPublisher)(nil)
