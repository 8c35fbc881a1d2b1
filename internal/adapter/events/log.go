package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// LogPublisher writes events to the log instead of a broker.
// Used when no Kafka brokers are configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event at Info
func (p *LogPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.logger.Info("event", zap.String("topic", topic), zap.Any("payload", event))
	return nil
}

// NopPublisher discards every event
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(ctx context.Context, topic string, event any) error { return nil }

var (
	_ domain.EventPublisher = (*LogPublisher)(nil)
	_ domain.EventPublisher = NopPublisher{}
)
