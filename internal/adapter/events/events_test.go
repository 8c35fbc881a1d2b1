package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w, "wealthflow.", nil)
	event := domain.GoalStatusChanged{
		GoalID:        uuid.New(),
		UserID:        "u1",
		From:          domain.GoalStatusActive,
		To:            domain.GoalStatusAchieved,
		ProgressRatio: decimal.RequireFromString("1.05"),
		OccurredAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	err := p.Publish(context.Background(), domain.TopicGoalStatusChanged, event)

	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "wealthflow.goal.status_changed", w.msgs[0].Topic)
	assert.Equal(t, []byte("u1"), w.msgs[0].Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "achieved", decoded["to"])
	assert.Equal(t, "1.05", decoded["progress_ratio"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(w, "", zap.NewNop())

	err := p.Publish(context.Background(), domain.TopicTransactionRecorded, &domain.TransactionRecorded{UserID: "u1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish to transaction.recorded")
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaPublisher_UnmarshalableEvent(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w, "", nil)

	err := p.Publish(context.Background(), "bad", make(chan int))

	require.Error(t, err)
	assert.Empty(t, w.msgs)
}

func TestLogPublisher_Publish(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), domain.TopicTransactionRecorded, domain.TransactionRecorded{UserID: "u1"}))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "event", entry.Message)
	assert.Equal(t, domain.TopicTransactionRecorded, entry.ContextMap()["topic"])
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), "any", struct{}{}))
}
