package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink ships match events to a Kafka topic as JSON. It satisfies Store
// but is write-only; ListByVenue always returns nothing.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects a producer to the given brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka producer: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Append(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal match event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(e.VenueID.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce match event: %w", err)
	}
	return nil
}

func (s *KafkaSink) ListByVenue(context.Context, uuid.UUID) ([]Event, error) {
	return nil, nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
