package notify

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/rocketshoes/cart/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaNotifier publishes notifications so a storefront can render them as
// toasts. The writer is async, Notify never blocks on the broker.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaNotifier(logger *zap.Logger, topic string, brokers ...string) *KafkaNotifier {
	logger = logger.Named("kafka_notifier")
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to publish notifications", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}
	return &KafkaNotifier{writer: writer, logger: logger}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n domain.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		k.logger.Error("failed to marshal notification", zap.String("notification_id", n.ID), zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(n.ProductID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("cart.notification")},
			{Key: "level", Value: []byte(n.Level)},
		},
	}
	// async writer, the error is reported through Completion
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.logger.Error("failed to enqueue notification", zap.String("notification_id", n.ID), zap.Error(err))
	}
}

// Close flushes pending messages
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
