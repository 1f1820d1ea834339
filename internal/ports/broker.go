package ports

import (
	"context"

	"github.com/conjugo/conjugo/internal/domain/models"
)

// BrokerMessage is one consumed broker record plus the coordinates the
// consumer needs to commit it.
type BrokerMessage struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}

// Publisher publishes generation messages keyed by request id, so all
// messages of one request land on the same partition.
type Publisher interface {
	Publish(ctx context.Context, msg models.GenerationMessage) error
	Close() error
}

// Consumer is one group member's view of the generation topic. Offsets are
// committed explicitly, per message, only after side-effects complete.
type Consumer interface {
	Fetch(ctx context.Context) (BrokerMessage, error)
	Commit(ctx context.Context, msg BrokerMessage) error
	Close() error
}

// ConsumerFactory opens one consumer per worker; all consumers join the same
// group so the broker spreads partitions across them.
type ConsumerFactory interface {
	NewConsumer() (Consumer, error)
}
