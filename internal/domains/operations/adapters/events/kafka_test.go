package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessage(_ context.Context, msg kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msg)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent() domain.Event {
	return domain.Event{
		Type:        domain.EventReportRecorded,
		OperationID: 9,
		CustomerID:  3,
		Status:      domain.StatusRecorded,
		Items:       []domain.OperationItem{{ID: 1, OperationID: 9, BookID: 4, Quantity: -2}},
		OccurredAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisherWritesEnvelope(t *testing.T) {
	writer := &recordingWriter{}
	pub := NewKafkaPublisherWithWriter(writer, nil)

	require.NoError(t, pub.Publish(context.Background(), sampleEvent()))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "3", string(msg.Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "operation.report.recorded", env.EventType)
	assert.Equal(t, "2024-03-01T12:00:00Z", env.Timestamp)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, []domain.Line{{BookID: 4, Quantity: -2}}, env.Payload.Items)
	assert.Equal(t, "recorded", env.Payload.Status)

	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisherReturnsWriteError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	pub := NewKafkaPublisherWithWriter(writer, nil)
	require.EqualError(t, pub.Publish(context.Background(), sampleEvent()), "broker down")
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "", "test", nil, nil)
	require.Error(t, err)
}
