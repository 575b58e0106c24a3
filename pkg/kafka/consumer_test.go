package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages and then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    int
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeReader) commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type recordingDLQ struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	causes []error
}

func (r *recordingDLQ) Publish(_ context.Context, msg kafka.Message, lastErr error, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	r.causes = append(r.causes, lastErr)
	return nil
}

func eventMessage(t *testing.T, topic string, offset int64) kafka.Message {
	t.Helper()
	event, err := NewEvent(context.Background(), testMeta("media.cleanup_requested"), map[string]string{"externalId": "x"})
	require.NoError(t, err)
	msg, err := event.message(topic)
	require.NoError(t, err)
	msg.Offset = offset
	return msg
}

func testConsumerConfig(topic string) ConsumerConfig {
	return ConsumerConfig{Topic: topic, GroupID: "test-group", MaxRetries: 3, RetryBackoff: time.Millisecond}
}

func TestConsumer_ProcessSuccess(t *testing.T) {
	topic := "consumer-success"
	calls := 0
	c := newConsumer(&fakeReader{}, testConsumerConfig(topic), func(ctx context.Context, e *Event) error {
		calls++
		assert.Equal(t, "media.cleanup_requested", e.EventType)
		return nil
	}, testLogger())

	c.process(context.Background(), eventMessage(t, topic, 1))

	assert.Equal(t, 1, calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(ConsumerMessagesProcessed.WithLabelValues(topic, "test-group")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ConsumerMessagesReceived.WithLabelValues(topic, "test-group")))
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	c := newConsumer(&fakeReader{}, testConsumerConfig("consumer-retry"), func(context.Context, *Event) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, testLogger())

	c.process(context.Background(), eventMessage(t, "consumer-retry", 1))
	assert.Equal(t, 3, calls)
}

func TestConsumer_ExhaustedRetriesGoToDLQ(t *testing.T) {
	topic := "consumer-poison"
	dlq := &recordingDLQ{}
	calls := 0
	c := newConsumer(&fakeReader{}, testConsumerConfig(topic), func(context.Context, *Event) error {
		calls++
		return errors.New("remote unavailable")
	}, testLogger(), WithDeadLetter(dlq))

	msg := eventMessage(t, topic, 7)
	c.process(context.Background(), msg)

	assert.Equal(t, 3, calls)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, int64(7), dlq.msgs[0].Offset)
	assert.EqualError(t, dlq.causes[0], "remote unavailable")
	assert.Equal(t, float64(1), testutil.ToFloat64(ConsumerMessagesFailed.WithLabelValues(topic, "test-group")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ConsumerDLQPublished.WithLabelValues(topic, "test-group")))
}

func TestConsumer_UndecodableGoesToDLQWithoutHandler(t *testing.T) {
	dlq := &recordingDLQ{}
	called := false
	c := newConsumer(&fakeReader{}, testConsumerConfig("consumer-garbage"), func(context.Context, *Event) error {
		called = true
		return nil
	}, testLogger(), WithDeadLetter(dlq))

	c.process(context.Background(), kafka.Message{Topic: "consumer-garbage", Value: []byte("garbage")})

	assert.False(t, called)
	assert.Len(t, dlq.msgs, 1)
}

func TestConsumer_StartCommitsAndStops(t *testing.T) {
	topic := "consumer-start"
	reader := &fakeReader{queue: []kafka.Message{eventMessage(t, topic, 1), eventMessage(t, topic, 2)}}
	c := newConsumer(reader, testConsumerConfig(topic), func(context.Context, *Event) error { return nil }, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return reader.commits() == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, 1, reader.closed)
	assert.NoError(t, c.Close())
	assert.Equal(t, 1, reader.closed)
}

func TestNewConsumer_Defaults(t *testing.T) {
	c := newConsumer(&fakeReader{}, ConsumerConfig{Topic: "t"}, nil, testLogger())
	assert.Equal(t, defaultMaxRetries, c.maxRetries)
	assert.Equal(t, defaultRetryBackoff, c.backoff)
	assert.Nil(t, c.dlq)
}
