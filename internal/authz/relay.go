package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"ctn/internal/authz/metrics"
)

// DecisionTopic is the stream the relay produces decision records to.
const DecisionTopic = "ctn.authz.decisions"

// Relay drains the decision outbox to Kafka. The synchronous log insert is
// the fail-closed audit write; this fan-out only feeds monitoring, so relay
// lag never blocks a request. Safe to run from multiple instances: a record
// relayed twice is deduplicated downstream by log_id.
type Relay struct {
	store    Store
	client   *kgo.Client
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithRelayLogger attaches a structured logger.
func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

// WithRelayMetrics attaches module metrics.
func WithRelayMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

// WithRelayInterval overrides the drain interval.
func WithRelayInterval(interval time.Duration) RelayOption {
	return func(r *Relay) { r.interval = interval }
}

// WithRelayTopic overrides the destination topic.
func WithRelayTopic(topic string) RelayOption {
	return func(r *Relay) { r.topic = topic }
}

// NewRelay constructs an outbox relay over an existing Kafka client.
func NewRelay(store Store, client *kgo.Client, opts ...RelayOption) *Relay {
	r := &Relay{
		store:    store,
		client:   client,
		topic:    DecisionTopic,
		interval: 5 * time.Second,
		batch:    100,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run drains the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.metrics.IncRelayFailure()
				r.logger.ErrorContext(ctx, "decision relay failed", "error", err)
			}
		}
	}
}

func (r *Relay) drain(ctx context.Context) error {
	records, err := r.store.NextUnrelayed(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("fetch unrelayed decisions: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	kafkaRecords := make([]*kgo.Record, 0, len(records))
	logIDs := make([]string, 0, len(records))
	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode decision %s: %w", record.LogID, err)
		}
		kafkaRecords = append(kafkaRecords, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(record.LogID),
			Value: payload,
		})
		logIDs = append(logIDs, record.LogID)
	}

	if err := r.client.ProduceSync(ctx, kafkaRecords...).FirstErr(); err != nil {
		return fmt.Errorf("produce decision batch: %w", err)
	}
	if err := r.store.MarkRelayed(ctx, logIDs); err != nil {
		return fmt.Errorf("mark decisions relayed: %w", err)
	}

	r.metrics.AddRelayed(len(logIDs))
	return nil
}
