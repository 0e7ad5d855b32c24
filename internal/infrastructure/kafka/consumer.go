package kafka

import (
	"context"
	"fmt"

	"github.com/andrsolo/Request-Relay/pkg/kafka/consumer"
	"github.com/segmentio/kafka-go"
)

// CaptureConsumer reads captured requests published by edge proxies. Commit
// is explicit and happens only after the capture is durably stored.
type CaptureConsumer struct {
	*consumer.Consumer
}

func NewCaptureConsumer(consumer *consumer.Consumer) *CaptureConsumer {
	return &CaptureConsumer{consumer}
}

func (cc *CaptureConsumer) ReadCapture(ctx context.Context) (kafka.Message, error) {
	msg, err := cc.Reader.FetchMessage(ctx)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("CaptureConsumer - ReadCapture - cc.Reader.FetchMessage: %w", err)
	}

	return msg, nil
}

func (cc *CaptureConsumer) CommitCapture(ctx context.Context, msg kafka.Message) error {
	err := cc.Reader.CommitMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("CaptureConsumer - CommitCapture - cc.Reader.CommitMessages: %w", err)
	}

	return nil
}

func (cc *CaptureConsumer) Close() error {
	err := cc.Consumer.Close()
	if err != nil {
		return fmt.Errorf("CaptureConsumer - Close: %w", err)
	}

	return nil
}
