package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink mirrors audit entries to a Kafka topic for downstream SIEM
// consumption. The Postgres trail stays the source of truth; a publish
// failure is logged by the service and never blocks a business operation.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the given comma-separated broker list.
func NewKafkaSink(brokers, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(brokers, ",")...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

type kafkaPayload struct {
	ID            string  `json:"id"`
	PerformedBy   string  `json:"performedBy"`
	Module        string  `json:"module"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	PreviousValue *string `json:"previousValue,omitempty"`
	NewValue      *string `json:"newValue,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

// Publish produces one record keyed by module so per-module ordering holds.
func (s *KafkaSink) Publish(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(kafkaPayload{
		ID:            entry.ID.String(),
		PerformedBy:   entry.PerformedBy,
		Module:        string(entry.Module),
		Description:   entry.Description,
		Status:        string(entry.Status),
		PreviousValue: entry.PreviousValue,
		NewValue:      entry.NewValue,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(entry.Module),
		Value: payload,
		Topic: s.topic,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
