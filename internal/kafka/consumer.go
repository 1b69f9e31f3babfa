package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-meetings/internal/logger"
	"ms-meetings/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader  MessageReader
	topic   string
	logger  *logger.Logger
	backoff time.Duration
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(reader, topic, log)
}

func NewConsumerWithReader(reader MessageReader, topic string, log *logger.Logger) *Consumer {
	return &Consumer{reader: reader, topic: topic, logger: log, backoff: time.Second}
}

// DecodeEventChange parses one event-change message.
func DecodeEventChange(msg kafka.Message) (models.EventChange, error) {
	var change models.EventChange
	if err := json.Unmarshal(msg.Value, &change); err != nil {
		return change, fmt.Errorf("unmarshal event change: %w", err)
	}
	if change.UserEmail == "" {
		return change, errors.New("event change without user_email")
	}
	return change, nil
}

// Start consumes event changes until ctx is done. Undecodable messages are
// logged and skipped.
func (c *Consumer) Start(ctx context.Context, handler func(context.Context, models.EventChange)) {
	c.logger.LogKafka("consumer_started", c.topic, "")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.LogKafka("consumer_stopped", c.topic, "")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message from %s: %v", c.topic, err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		change, err := DecodeEventChange(msg)
		if err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Skipping message at offset %d: %v", msg.Offset, err))
			continue
		}

		c.logger.LogKafka("received", c.topic, fmt.Sprintf("%s %s", change.Action, change.UserEmail))
		handler(ctx, change)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
