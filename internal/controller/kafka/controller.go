package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andrsolo/Request-Relay/internal/dto"
	"github.com/andrsolo/Request-Relay/internal/entity"
	kafkapc "github.com/andrsolo/Request-Relay/internal/infrastructure/kafka"
	"github.com/andrsolo/Request-Relay/internal/usecase"
	"github.com/andrsolo/Request-Relay/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// KafkaController ingests captures published by edge proxies that cannot
// reach the HTTP listener directly. Commit happens only after the capture
// is durably stored, so a crash replays instead of losing.
type KafkaController struct {
	relay  usecase.RelayUseCase
	cc     *kafkapc.CaptureConsumer
	logger logger.Interface

	commitTimeout  time.Duration
	processTimeout time.Duration

	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	started atomic.Bool
}

func New(
	relay usecase.RelayUseCase,
	cc *kafkapc.CaptureConsumer,
	l logger.Interface,
	commitTimeout time.Duration,
	processTimeout time.Duration,
	workers int,
) *KafkaController {
	return &KafkaController{
		relay:          relay,
		cc:             cc,
		logger:         l,
		commitTimeout:  commitTimeout,
		processTimeout: processTimeout,
		workers:        workers,
	}
}

func (c *KafkaController) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("KafkaController - Start - controller already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	tasks := make(chan kafka.Message, c.workers*2)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(tasks)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(tasks)

		for {
			select {
			case <-c.ctx.Done():
				return
			default:
				msg, err := c.cc.ReadCapture(c.ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						c.logger.Error(err, "KafkaController - Start - c.cc.ReadCapture")
					}
					continue
				}

				select {
				case tasks <- msg:
				case <-c.ctx.Done():
					return
				}
			}
		}
	}()

	return nil
}

func (c *KafkaController) storeCapture(ctx context.Context, msg kafka.Message) error {
	var payload CapturePayload
	err := json.Unmarshal(msg.Value, &payload)
	if err != nil {
		return fmt.Errorf("KafkaController - storeCapture - json.Unmarshal: %w", err)
	}

	headers := make([]entity.Header, 0, len(payload.Headers))
	for _, h := range payload.Headers {
		headers = append(headers, entity.Header{Name: h.Name, Value: h.Value})
	}

	_, err = c.relay.Capture(ctx, dto.Capture{
		Method:   payload.Method,
		Protocol: payload.Protocol,
		Hostname: payload.Hostname,
		URI:      payload.URI,
		Headers:  headers,
		Body:     []byte(payload.Body),
	})
	if err != nil {
		return fmt.Errorf("KafkaController - storeCapture - c.relay.Capture: %w", err)
	}

	return nil
}

func (c *KafkaController) worker(tasks <-chan kafka.Message) {
	defer c.wg.Done()

	for msg := range tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error(fmt.Errorf("panic %v", r), "KafkaController - worker - panic")
				}
			}()

			processCtx, processCancel := context.WithTimeout(c.ctx, c.processTimeout)
			err := c.storeCapture(processCtx, msg)
			processCancel()
			if err != nil {
				// Not committed; redelivered after restart or rebalance.
				c.logger.Error(err, "KafkaController - worker - c.storeCapture")

				return
			}

			commitCtx, commitCancel := context.WithTimeout(c.ctx, c.commitTimeout)
			err = c.cc.CommitCapture(commitCtx, msg)
			commitCancel()
			if err != nil {
				c.logger.Error(err, "KafkaController - worker - c.cc.CommitCapture")
			}
		}()
	}
}

func (c *KafkaController) Shutdown(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})

	go func() {
		c.wg.Wait()
		c.cc.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
