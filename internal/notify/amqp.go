package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ctpipe/uploadq/shared/rabbitmq"
)

// AMQPNotifier forwards push events to the RabbitMQ fanout exchange so
// out-of-process dashboards can subscribe. Failures are logged and
// dropped; polling remains the source of truth.
type AMQPNotifier struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewAMQPNotifier wraps an existing RabbitMQ client.
func NewAMQPNotifier(client *rabbitmq.Client, logger *slog.Logger) *AMQPNotifier {
	return &AMQPNotifier{client: client, logger: logger}
}

func (n *AMQPNotifier) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to encode push event",
			slog.String("type", event.Type),
			slog.String("job_id", event.JobID),
			slog.Any("error", err),
		)
		return
	}

	if err := n.client.PublishWithRetry(ctx, body, "application/json"); err != nil {
		n.logger.Warn("Push event not delivered",
			slog.String("type", event.Type),
			slog.String("job_id", event.JobID),
			slog.Any("error", err),
		)
	}
}
