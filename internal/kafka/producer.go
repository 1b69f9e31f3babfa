package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-meetings/internal/logger"
	"ms-meetings/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topics Topics
	logger *logger.Logger
}

// Topics names the topics this service writes to.
type Topics struct {
	EventChanges      string
	AssistantLaunches string
}

func NewProducer(brokers []string, topics Topics, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topics: topics, logger: log}
}

// Publish JSON-encodes value and writes it to topic under key.
func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	}); err != nil {
		p.logger.LogKafka("publish_failed", topic, err.Error())
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.LogKafka("published", topic, string(msgBytes))
	return nil
}

// PublishEventChanged streams a change of a user's event list, keyed by user
// so one user's changes stay ordered.
func (p *Producer) PublishEventChanged(ctx context.Context, change models.EventChange) error {
	return p.Publish(ctx, p.Topics.EventChanges, change.UserEmail, change)
}

// PublishLaunch streams one assistant launch attempt.
func (p *Producer) PublishLaunch(ctx context.Context, rec models.LaunchRecord) error {
	return p.Publish(ctx, p.Topics.AssistantLaunches, rec.UserEmail, rec)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
