package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// ackAfter answers with ack, or blocks until the wait context ends when block is set.
type ackAfter struct {
	ack   bool
	block bool
}

func (c ackAfter) WaitContext(ctx context.Context) (bool, error) {
	if c.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return c.ack, nil
}

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	replies   []ackAfter
	err       error
	closed    bool
}

func (c *fakeChannel) Publish(_ context.Context, routingKey string, msg amqp.Publishing) (confirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.published = append(c.published, msg)
	c.keys = append(c.keys, routingKey)
	reply := ackAfter{ack: true}
	if len(c.replies) > 0 {
		reply, c.replies = c.replies[0], c.replies[1:]
	}
	return reply, nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestAMQPPublisherSendsEnvelope(t *testing.T) {
	channel := &fakeChannel{}
	pub := newAMQPPublisher(channel, nil)

	require.NoError(t, pub.Publish(context.Background(), sampleEvent()))
	require.Len(t, channel.published, 1)
	assert.Equal(t, "operation.report.recorded", channel.keys[0])

	msg := channel.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "operation.report.recorded", msg.Headers["event_type"])

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Body, &env))
	assert.Equal(t, env.EventID, msg.MessageId)
	assert.Equal(t, int64(9), env.Payload.OperationID)
}

func TestAMQPPublisherKeepsPublishingAfterManyEvents(t *testing.T) {
	channel := &fakeChannel{}
	pub := newAMQPPublisher(channel, nil)
	pub.confirmTimeout = 50 * time.Millisecond

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 20; i++ {
		g.Go(func() error { return pub.Publish(ctx, sampleEvent()) })
	}
	require.NoError(t, g.Wait())
	assert.Len(t, channel.published, 20)
}

func TestAMQPPublisherRetriesNacksAndTimeouts(t *testing.T) {
	channel := &fakeChannel{replies: []ackAfter{{ack: false}, {block: true}, {ack: true}}}
	pub := newAMQPPublisher(channel, nil)
	pub.confirmTimeout = 10 * time.Millisecond

	require.NoError(t, pub.Publish(context.Background(), sampleEvent()))
	assert.Len(t, channel.published, 3)
}

func TestAMQPPublisherGivesUpAfterRetries(t *testing.T) {
	channel := &fakeChannel{err: errors.New("channel closed")}
	pub := newAMQPPublisher(channel, nil)

	err := pub.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "channel closed")
}

func TestAMQPPublisherStopsOnCancelledContext(t *testing.T) {
	channel := &fakeChannel{replies: []ackAfter{{block: true}}}
	pub := newAMQPPublisher(channel, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pub.Publish(ctx, sampleEvent())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, channel.published, 1)
}

func TestAMQPPublisherClose(t *testing.T) {
	channel := &fakeChannel{}
	require.NoError(t, newAMQPPublisher(channel, nil).Close())
	assert.True(t, channel.closed)
}
