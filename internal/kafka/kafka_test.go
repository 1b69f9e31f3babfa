package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mkafka "ms-meetings/internal/kafka"
	"ms-meetings/internal/logger"
	"ms-meetings/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	queue chan kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.queue:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error { return nil }

var topics = mkafka.Topics{EventChanges: "meetings.events.changed", AssistantLaunches: "meetings.assistant.launched"}

func TestPublishEventChanged(t *testing.T) {
	w := &fakeWriter{}
	p := &mkafka.Producer{Writer: w, Topics: topics}

	change := models.EventChange{UserEmail: "alice@example.com", Action: "created", Index: 2, At: time.Date(2025, 2, 22, 9, 0, 0, 0, time.UTC)}
	require.NoError(t, p.PublishEventChanged(context.Background(), change))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "meetings.events.changed", w.msgs[0].Topic)
	assert.Equal(t, "alice@example.com", string(w.msgs[0].Key))

	var got models.EventChange
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, change, got)
}

func TestPublishLaunchUsesLaunchTopic(t *testing.T) {
	w := &fakeWriter{}
	p := &mkafka.Producer{Writer: w, Topics: topics}

	require.NoError(t, p.PublishLaunch(context.Background(), models.LaunchRecord{ID: "l1", UserEmail: "bob@example.com"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "meetings.assistant.launched", w.msgs[0].Topic)
	assert.Equal(t, "bob@example.com", string(w.msgs[0].Key))
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &mkafka.Producer{Writer: &fakeWriter{err: boom}, Topics: topics}

	err := p.Publish(context.Background(), "t", "k", map[string]string{"a": "b"})
	assert.ErrorIs(t, err, boom)
}

func TestDecodeEventChange(t *testing.T) {
	_, err := mkafka.DecodeEventChange(kafka.Message{Value: []byte("{nope")})
	assert.Error(t, err)

	_, err = mkafka.DecodeEventChange(kafka.Message{Value: []byte(`{"action":"created"}`)})
	assert.Error(t, err)

	change, err := mkafka.DecodeEventChange(kafka.Message{Value: []byte(`{"user_email":"a@b.c","action":"deleted","index":1}`)})
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", change.UserEmail)
	assert.Equal(t, "deleted", change.Action)
}

func TestConsumerDeliversAndSkipsBadMessages(t *testing.T) {
	reader := &fakeReader{queue: make(chan kafka.Message, 3)}
	reader.queue <- kafka.Message{Value: []byte("garbage")}
	reader.queue <- kafka.Message{Value: []byte(`{"user_email":"alice@example.com","action":"updated"}`)}

	c := mkafka.NewConsumerWithReader(reader, topics.EventChanges, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan models.EventChange, 1)
	done := make(chan struct{})
	go func() {
		c.Start(ctx, func(_ context.Context, ch models.EventChange) { got <- ch })
		close(done)
	}()

	select {
	case ch := <-got:
		assert.Equal(t, "alice@example.com", ch.UserEmail)
	case <-time.After(2 * time.Second):
		t.Fatal("no event change delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
