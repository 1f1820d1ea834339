package kafka

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/segmentio/kafka-go"
	"gopkg.in/yaml.v3"
)

// TopicDefinition is one declared topic in config/topics.yaml.
type TopicDefinition struct {
	Name              string            `yaml:"name"`
	Partitions        int               `yaml:"partitions"`
	ReplicationFactor int               `yaml:"replication_factor"`
	Config            map[string]string `yaml:"config,omitempty"`
}

type topicsFile struct {
	Topics []TopicDefinition `yaml:"topics"`
}

// LoadTopics parses the declarative topic manifest.
func LoadTopics(path string) ([]TopicDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic manifest: %w", err)
	}
	return ParseTopics(data)
}

func ParseTopics(data []byte) ([]TopicDefinition, error) {
	var file topicsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse topic manifest: %w", err)
	}
	for _, t := range file.Topics {
		if t.Name == "" {
			return nil, fmt.Errorf("topic manifest entry without a name")
		}
		if t.Partitions < 1 {
			return nil, fmt.Errorf("topic %s: partitions must be >= 1", t.Name)
		}
	}
	return file.Topics, nil
}

// Migrator reconciles declared topics against the cluster: it creates missing
// topics and raises partition counts. Partition counts are never lowered --
// Kafka cannot shrink a topic, and declaring fewer partitions than exist is
// treated as a manifest mistake worth logging, not failing on.
type Migrator struct {
	client *kafka.Client
}

func NewMigrator(brokers []string) *Migrator {
	return &Migrator{
		client: &kafka.Client{Addr: kafka.TCP(brokers...)},
	}
}

func (m *Migrator) Migrate(ctx context.Context, topics []TopicDefinition) error {
	for _, topic := range topics {
		existing, err := m.PartitionCount(ctx, topic.Name)
		if err != nil {
			return err
		}

		switch {
		case existing == 0:
			if err := m.create(ctx, topic); err != nil {
				return err
			}
			log.Printf("kafka: created topic %s with %d partitions", topic.Name, topic.Partitions)
		case existing < topic.Partitions:
			if err := m.raisePartitions(ctx, topic.Name, topic.Partitions); err != nil {
				return err
			}
			log.Printf("kafka: raised topic %s from %d to %d partitions", topic.Name, existing, topic.Partitions)
		case existing > topic.Partitions:
			log.Printf("kafka: topic %s has %d partitions, manifest declares %d; leaving as is",
				topic.Name, existing, topic.Partitions)
		}
	}
	return nil
}

// PartitionCount returns the topic's current partition count, 0 when the
// topic does not exist.
func (m *Migrator) PartitionCount(ctx context.Context, topic string) (int, error) {
	resp, err := m.client.Metadata(ctx, &kafka.MetadataRequest{
		Topics: []string{topic},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read metadata for %s: %w", topic, err)
	}
	for _, t := range resp.Topics {
		if t.Name != topic {
			continue
		}
		if t.Error != nil {
			// Unknown topic comes back as a per-topic error.
			return 0, nil
		}
		return len(t.Partitions), nil
	}
	return 0, nil
}

func (m *Migrator) create(ctx context.Context, topic TopicDefinition) error {
	var entries []kafka.ConfigEntry
	for name, value := range topic.Config {
		entries = append(entries, kafka.ConfigEntry{ConfigName: name, ConfigValue: value})
	}

	replication := topic.ReplicationFactor
	if replication < 1 {
		replication = 1
	}

	resp, err := m.client.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             topic.Name,
			NumPartitions:     topic.Partitions,
			ReplicationFactor: replication,
			ConfigEntries:     entries,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic.Name, err)
	}
	if topicErr := resp.Errors[topic.Name]; topicErr != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic.Name, topicErr)
	}
	return nil
}

func (m *Migrator) raisePartitions(ctx context.Context, topic string, count int) error {
	resp, err := m.client.CreatePartitions(ctx, &kafka.CreatePartitionsRequest{
		Topics: []kafka.TopicPartitionsConfig{{
			Name:  topic,
			Count: int32(count),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to raise partitions for %s: %w", topic, err)
	}
	if topicErr := resp.Errors[topic]; topicErr != nil {
		return fmt.Errorf("failed to raise partitions for %s: %w", topic, topicErr)
	}
	return nil
}
