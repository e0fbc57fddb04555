// Package notify delivers operator notifications. The scheduler side
// publishes them to Kafka; the notifier binary consumes the topic and sends
// email.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/MikohMick/SEO-MACHINE/pkg/kafka"
)

// Notification is one operator-facing message.
type Notification struct {
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	EmittedAt time.Time `json:"emitted_at"`
}

// KafkaNotifier publishes notifications to the notifications topic. Delivery
// is fire and forget: a broker outage is logged, never propagated, so a
// failed notification cannot fail a monitoring run.
type KafkaNotifier struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewKafkaNotifier wraps a producer on the notifications topic.
func NewKafkaNotifier(producer *kafka.Producer) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		logger:   slog.Default().With("component", "notifier"),
	}
}

// Notify publishes one notification.
func (n *KafkaNotifier) Notify(ctx context.Context, subject, body string) {
	value, err := json.Marshal(Notification{
		Subject:   subject,
		Body:      body,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		n.logger.Error("marshal notification", "error", err)
		return
	}
	if err := n.producer.Publish(ctx, kafka.Event{Key: subject, Value: value}); err != nil {
		n.logger.Error("publish notification", "subject", subject, "error", err)
		return
	}
	n.logger.Info("notification queued", "subject", subject)
}
