package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

// KafkaNotifier publishes notifications to a topic keyed by recipient.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier builds a writer for brokers. Writers are safe for concurrent use.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	if topic == "" {
		topic = "helpdesk.notifications"
	}
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (k *KafkaNotifier) Send(ctx context.Context, n Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(n.Recipient), Value: value})
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
