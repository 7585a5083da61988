// Package audit ships session events to Kafka.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

const writeTimeout = 5 * time.Second

var (
	_ model.EventPublisher = (*Publisher)(nil)
	_ model.EventPublisher = Noop{}
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes session events as JSON, keyed by user id so the events
// of one user stay ordered within a partition.
type Publisher struct {
	writer messageWriter
	logger *logger.Logger
}

// NewPublisher creates an asynchronous kafka-go writer for topic.
func NewPublisher(brokers []string, topic string, logger *logger.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Error("Audit: failed to deliver events", "count", len(msgs), "error", err)
			}
		},
	}
	return newPublisher(w, logger)
}

func newPublisher(w messageWriter, logger *logger.Logger) *Publisher {
	return &Publisher{writer: w, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, event model.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	// failed logins for unknown users have no id
	key := event.Username
	if event.UserID != uuid.Nil {
		key = event.UserID.String()
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write session event: %w", err)
	}

	p.logger.Debug("Audit: event queued", "type", event.Type, "user_id", event.UserID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, model.SessionEvent) error { return nil }

func (Noop) Close() error { return nil }
