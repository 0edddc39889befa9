// Package kafka streams journal entries to a Kafka topic for downstream
// consumers (reporting, reconciliation). The topic is keyed by the debited
// account so per-account ordering is preserved.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"wrkledger/pkg/platform/journal"
)

type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the journal topic exists.
func New(ctx context.Context, brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return &Sink{client: client, topic: topic}, nil
}

func (s *Sink) Deliver(ctx context.Context, entry journal.Entry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   partitionKey(entry),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce journal entry: %w", err)
	}
	return nil
}

func (s *Sink) Close() {
	s.client.Close()
}

func partitionKey(entry journal.Entry) []byte {
	switch {
	case !entry.From.IsZero():
		return []byte(entry.From.String())
	case !entry.Purchaser.IsZero():
		return []byte(entry.Purchaser.String())
	case !entry.Wallet.IsZero():
		return []byte(entry.Wallet.String())
	default:
		return []byte(entry.ID)
	}
}
