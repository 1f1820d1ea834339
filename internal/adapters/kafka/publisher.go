// Package kafka adapts segmentio/kafka-go to the broker ports: a publisher
// keyed by request id, per-worker consumers in one group, and declarative
// topic migration.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/conjugo/conjugo/internal/adapters/metrics"
	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
)

// ConsumerGroup is the group every worker joins; the broker spreads the
// topic's partitions across the members.
const ConsumerGroup = "problem-generator-workers"

// Publisher writes generation messages to the generation topic. The hash
// balancer with the request id as key keeps one request's messages on one
// partition, which preserves their relative order.
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic: topic,
	}
}

func (p *Publisher) Publish(ctx context.Context, msg models.GenerationMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		metrics.BrokerPublishTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to marshal generation message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.GenerationRequestID),
		Value: value,
	})
	if err != nil {
		metrics.BrokerPublishTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %v", domain.ErrBrokerUnavailable, err)
	}

	metrics.BrokerPublishTotal.WithLabelValues("ok").Inc()
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
