package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/pkg/kafka/producer"
	"github.com/segmentio/kafka-go"
)

// AlertProducer publishes delivery alerts for operator tooling. Messages are
// keyed by request id so alerts for one request stay in order.
type AlertProducer struct {
	*producer.Producer
	topic string
}

func NewAlertProducer(producer *producer.Producer, topic string) *AlertProducer {
	return &AlertProducer{
		producer,
		topic,
	}
}

func (ap *AlertProducer) Publish(ctx context.Context, alert entity.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("AlertProducer - Publish - json.Marshal: %w", err)
	}

	msg := kafka.Message{
		Topic: ap.topic,
		Key:   []byte(alert.RequestID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "state", Value: []byte(alert.State.String())},
		},
	}

	err = ap.Writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("AlertProducer - Publish - ap.Writer.WriteMessages: %w", err)
	}

	return nil
}

func (ap *AlertProducer) Close() error {
	err := ap.Producer.Close()
	if err != nil {
		return fmt.Errorf("AlertProducer - Close: %w", err)
	}

	return nil
}
