package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/conjugo/conjugo/internal/ports"
)

// Consumer wraps one kafka-go Reader in the worker group. Fetch and Commit
// are split so the worker commits an offset only after its side-effects
// landed; a crash in between redelivers the message.
type Consumer struct {
	reader *kafka.Reader
}

// ConsumerFactory opens group consumers for the worker pool.
type ConsumerFactory struct {
	brokers []string
	topic   string
}

func NewConsumerFactory(brokers []string, topic string) *ConsumerFactory {
	return &ConsumerFactory{brokers: brokers, topic: topic}
}

func (f *ConsumerFactory) NewConsumer() (ports.Consumer, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  f.brokers,
		Topic:    f.topic,
		GroupID:  ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &Consumer{reader: reader}, nil
}

func (c *Consumer) Fetch(ctx context.Context) (ports.BrokerMessage, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return ports.BrokerMessage{}, err
	}
	return ports.BrokerMessage{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
	}, nil
}

func (c *Consumer) Commit(ctx context.Context, msg ports.BrokerMessage) error {
	return c.reader.CommitMessages(ctx, kafka.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
