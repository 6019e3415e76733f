package engine

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/quantex/exchange-core/pkg/kafkabus"
)

// RedisPublisher fans events out over redis pub/sub for real-time
// consumers.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel, _ string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// KafkaPublisher appends events to the durable log. Only channels mapped
// to a topic are persisted. Keying by symbol keeps per-symbol ordering
// within a partition.
type KafkaPublisher struct {
	producer *kafkabus.Producer
	topics   map[string]string // channel -> topic
}

func NewKafkaPublisher(producer *kafkabus.Producer, topics map[string]string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topics: topics}
}

func (p *KafkaPublisher) Publish(ctx context.Context, channel, key string, payload []byte) error {
	topic, ok := p.topics[channel]
	if !ok {
		return nil
	}
	return p.producer.Publish(ctx, topic, []byte(key), payload, nil)
}
