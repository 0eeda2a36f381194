// Package announcer publishes ban lifecycle events to Kafka so downstream
// consumers (mail relay, moderation dashboards, SIEM) can react without
// coupling to this service. Publishing is best-effort: a broker outage never
// fails the ban or unban that triggered the event.
package announcer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Event is the wire payload published per lifecycle transition.
type Event struct {
	Type       string     `json:"type"` // "imposed" or "lifted"
	UserID     string     `json:"user_id"`
	Reason     string     `json:"reason"`
	Duration   string     `json:"duration"`
	BanEndsAt  *time.Time `json:"ban_ends_at,omitempty"`
	Actor      string     `json:"actor,omitempty"`
	LiftReason string     `json:"lift_reason,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Kafka publishes lifecycle events to a single topic, keyed by user ID so one
// account's events stay ordered within a partition.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects to the brokers and ensures the topic exists.
func NewKafka(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 3, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topic, err)
	}
	// An already-existing topic is fine; anything else is a startup fault.
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topic, resp.Err)
	}

	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

// Announce publishes asynchronously. Failures are logged and counted by the
// caller's metrics; they are never returned to the lifecycle engine.
func (k *Kafka) Announce(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		k.logger.ErrorContext(ctx, "marshal lifecycle event", "error", err)
		return
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.UserID),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.WarnContext(ctx, "lifecycle event publish failed",
				"topic", k.topic,
				"user_id", event.UserID,
				"error", err,
			)
		}
	})
}

// Close flushes pending records and releases the client.
func (k *Kafka) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = k.client.Flush(ctx)
	k.client.Close()
}
