package repository

import (
	"context"
	"time"

	"FinPredict/internal/domain/repository"
	pkgkafka "FinPredict/pkg/kafka"
)

// KafkaEventPublisher emits training lifecycle events to a Kafka topic so
// downstream consumers can refresh their model views. A nil producer makes
// every publish a no-op, which keeps Kafka optional in deployments.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishTrainingEvent(ctx context.Context, event string, symbol string, detail map[string]interface{}) error {
	if p == nil || p.producer == nil {
		return nil
	}
	payload := map[string]interface{}{
		"event":  event,
		"symbol": symbol,
		"at":     time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range detail {
		payload[k] = v
	}
	return p.producer.Publish(ctx, p.topic, []byte(symbol), payload)
}

func (p *KafkaEventPublisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
