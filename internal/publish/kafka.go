// Package publish broadcasts burn-in lifecycle transitions to an external
// reporting system over Kafka. Publication is best-effort: a broker outage
// never blocks or fails the sweep, which treats the JSON status store as
// its only source of truth.
package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/svdh2/burnin-orchestrator/internal/status"
)

// TransitionEvent is the JSON payload published for every observed state
// change.
type TransitionEvent struct {
	Label  string       `json:"label"`
	From   status.State `json:"from"`
	To     status.State `json:"to"`
	Runs   int          `json:"runs"`
	Passes int          `json:"passes"`
	At     time.Time    `json:"at"`
}

// TransitionPublisher emits transition events without ever surfacing an
// error to the caller — failures are logged and dropped.
type TransitionPublisher interface {
	Publish(event TransitionEvent)
}

// KafkaPublisher publishes transition events to a single Kafka topic using
// segmentio/kafka-go.
type KafkaPublisher struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	timeout time.Duration
}

const defaultWriteTimeout = 2 * time.Second

// NewKafkaPublisher creates a publisher writing to topic on the given
// broker addresses.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		logger:  logger,
		timeout: defaultWriteTimeout,
	}
}

// Publish writes event to the configured topic, keyed by label so a
// consumer can partition by test. Errors are logged and otherwise
// swallowed — the sweep's control flow never depends on this succeeding.
func (p *KafkaPublisher) Publish(event TransitionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to encode transition event", "label", event.Label, "error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Label),
		Value: payload,
	})
	if err != nil {
		p.logger.Warn("failed to publish transition event", "label", event.Label, "error", err.Error())
	}
}

// Close releases the underlying writer's connections.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards every event; used when no broker is configured.
type NoopPublisher struct{}

// Publish is a no-op.
func (NoopPublisher) Publish(TransitionEvent) {}
