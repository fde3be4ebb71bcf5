package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Notification is one outbound message. Delivery is best effort.
type Notification struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Notifier delivers notifications to an external sink.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	Close() error
}

// New builds the sink selected by NOTIFY_DRIVER.
func New(cfg config.NotificationConfig, logger *zap.Logger) (Notifier, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogNotifier(logger, cfg.EmailFrom), nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("NOTIFY_WEBHOOK_URL required for webhook notifier")
		}
		return NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookTimeout, cfg.WebhookRetries, logger), nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("NOTIFY_KAFKA_BROKERS required for kafka notifier")
		}
		return NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unknown notification driver: %s", cfg.Driver)
	}
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *zap.Logger
	from   string
}

// NewLogNotifier returns a sink that only logs.
func NewLogNotifier(logger *zap.Logger, from string) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger, from: from}
}

func (l *LogNotifier) Send(_ context.Context, n Notification) error {
	l.logger.Info("notification",
		zap.String("from", l.from),
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Subject),
		zap.String("body", n.Body))
	return nil
}

func (l *LogNotifier) Close() error { return nil }
