package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Kafka publishes lifecycle events to a single topic, keyed by report id so
// consumers see each report's transitions in order.
type Kafka struct {
	client *kgo.Client
	topic  string
}

// NewKafka connects to the brokers and ensures the topic exists. Topic
// creation is idempotent; an "already exists" response is not an error.
func NewKafka(ctx context.Context, brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	responses, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create topic: %w", err)
	}
	for _, response := range responses {
		if response.Err != nil && !errors.Is(response.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("create topic %s: %w", response.Topic, response.Err)
		}
	}

	return &Kafka{client: client, topic: topic}, nil
}

func (p *Kafka) PublishStatusChanged(ctx context.Context, event StatusChanged) error {
	return p.produce(ctx, "status_changed", event.ReportID.String(), event)
}

func (p *Kafka) PublishDisputed(ctx context.Context, event Disputed) error {
	return p.produce(ctx, "disputed", event.ReportID.String(), event)
}

func (p *Kafka) produce(ctx context.Context, kind, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}
	record := &kgo.Record{
		Topic:   p.topic,
		Key:     []byte(key),
		Value:   value,
		Headers: []kgo.RecordHeader{{Key: "event", Value: []byte(kind)}},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s event: %w", kind, err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *Kafka) Close() {
	p.client.Close()
}
