// Package kafka publishes service events (cutout fetch results, profile
// generation summaries) to a Kafka topic. The publisher is optional: the
// service runs without one when no brokers are configured.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/thesethtruth/atlite-profiles-api/internal/config"
)

// Publisher produces service events to the configured Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
	clock  func() time.Time
}

// NewPublisher creates a Kafka producer for the events topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger, clock: time.Now}
}

// Publish serializes payload as a JSON event of the given kind. The key
// groups events of the same kind into one partition.
func (p *Publisher) Publish(ctx context.Context, kind string, payload any) error {
	msg, err := serializeEvent(kind, payload, p.clock())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", kind, err)
	}
	return nil
}

func serializeEvent(kind string, payload any, now time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s event: %w", kind, err)
	}
	return kafkago.Message{
		Key:   []byte(kind),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(kind)},
			{Key: "published_at", Value: []byte(now.UTC().Format(time.RFC3339))},
		},
	}, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
