package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/infrastructure"
	"github.com/andrsolo/Request-Relay/internal/usecase"
	"github.com/andrsolo/Request-Relay/pkg/logger"
	"github.com/andrsolo/Request-Relay/pkg/types/errs"
)

// Dispatcher drives delivery: a pool of workers drains the due queue, plus
// a recovery worker for requests stranded in-flight and an optional
// retention worker for archiving old completed requests.
type Dispatcher struct {
	relay  usecase.RelayUseCase
	origin usecase.OriginUseCase
	dlv    infrastructure.Deliverer
	logger logger.Interface

	pollInterval      time.Duration
	recoverInterval   time.Duration
	activeStaleAfter  time.Duration
	retentionInterval time.Duration
	retention         time.Duration
	retentionBatch    int
	workers           int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	relay usecase.RelayUseCase,
	origin usecase.OriginUseCase,
	dlv infrastructure.Deliverer,
	l logger.Interface,
	pollInterval time.Duration,
	recoverInterval time.Duration,
	activeStaleAfter time.Duration,
	retentionInterval time.Duration,
	retention time.Duration,
	retentionBatch int,
	workers int,
) *Dispatcher {
	return &Dispatcher{
		relay:             relay,
		origin:            origin,
		dlv:               dlv,
		logger:            l,
		pollInterval:      pollInterval,
		recoverInterval:   recoverInterval,
		activeStaleAfter:  activeStaleAfter,
		retentionInterval: retentionInterval,
		retention:         retention,
		retentionBatch:    retentionBatch,
		workers:           workers,
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return fmt.Errorf("Dispatcher - Start - dispatcher already started")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// 1. delivery workers, each draining the due queue on every tick
	for i := 0; i < d.workers; i++ {
		d.worker(d.pollInterval, d.drainDue)
	}

	// 2. re-enqueue requests stranded in-flight by a crashed worker
	d.worker(d.recoverInterval, func() {
		n, err := d.relay.RecoverStale(d.ctx, d.activeStaleAfter)
		if err != nil {
			d.logger.Error(err, "Dispatcher - Start - worker - d.relay.RecoverStale")

			return
		}
		if n > 0 {
			d.logger.Warn("Dispatcher - recovered %d stranded requests", n)
		}
	})

	// 3. retention worker, only when a retention window is configured
	if d.retention > 0 {
		d.worker(d.retentionInterval, func() {
			n, err := d.relay.ArchiveExpired(d.ctx, d.retention, d.retentionBatch)
			if err != nil {
				d.logger.Error(err, "Dispatcher - Start - worker - d.relay.ArchiveExpired")

				return
			}
			if n > 0 {
				d.logger.Info("Dispatcher - archived %d completed requests", n)
			}
		})
	}

	return nil
}

// drainDue claims and delivers due requests until the queue is empty or the
// dispatcher is shutting down.
func (d *Dispatcher) drainDue() {
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		req, err := d.relay.ClaimNextDue(d.ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				d.logger.Error(err, "Dispatcher - drainDue - d.relay.ClaimNextDue")
			}

			return
		}
		if req == nil {
			return
		}

		d.dispatch(req)
	}
}

func (d *Dispatcher) dispatch(req *entity.Request) {
	origin, found := d.origin.Resolve(req.Hostname)

	var outcome usecase.Outcome
	if !found {
		// The origin was removed after this request was enqueued.
		outcome = usecase.Outcome{State: entity.StateSkipped}
	} else {
		outcome = d.deliver(req, origin)
	}

	state, err := d.relay.RecordOutcome(d.ctx, req, origin, outcome)
	if err != nil {
		// The request stays Active; the recovery worker will re-enqueue it.
		d.logger.Error(err, "Dispatcher - dispatch - d.relay.RecordOutcome")

		return
	}

	d.logger.Debug("Dispatcher - dispatched request %s, state %s", req.ID, state.String())
}

// deliver runs one attempt and classifies the result. A transport-level
// failure is Timeout; a panic or a malformed stored request is Panic and
// will not be retried automatically.
func (d *Dispatcher) deliver(req *entity.Request, origin *entity.Origin) (outcome usecase.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(fmt.Errorf("panic: %v", r), "Dispatcher - deliver - panic")
			outcome = usecase.Outcome{
				State:        entity.StatePanic,
				ResponseBody: []byte(fmt.Sprintf("panic: %v", r)),
			}
		}
	}()

	result, err := d.dlv.Deliver(d.ctx, req, origin)
	if err != nil {
		if errors.Is(err, errs.ErrOriginUnreachable) {
			return usecase.Outcome{State: entity.StateTimeout}
		}

		d.logger.Error(err, "Dispatcher - deliver - d.dlv.Deliver")

		// The diagnostic lands in the attempt so an operator can see what
		// broke without digging through logs.
		return usecase.Outcome{
			State:        entity.StatePanic,
			ResponseBody: []byte(err.Error()),
		}
	}

	state := entity.StateFailed
	if result.Success() {
		state = entity.StateCompleted
	}

	return usecase.Outcome{
		State:          state,
		ResponseStatus: &result.Status,
		ResponseBody:   result.Body,
	}
}

func (d *Dispatcher) worker(interval time.Duration, task func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-d.ctx.Done():
				return
			case <-ticker.C:
				task()
			}
		}
	}()
}

func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if !d.started.Load() {
		return nil
	}

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})

	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
