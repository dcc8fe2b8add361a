package brew

import (
	"context"
	"fmt"
	"time"

	"github.com/Cicerokx7/bean-order-server/internal/logger"
	"github.com/Cicerokx7/bean-order-server/internal/metrics"
	"github.com/Cicerokx7/bean-order-server/internal/models"
	"github.com/Cicerokx7/bean-order-server/internal/status"
)

// Pipeline runs the brew sequence for accepted orders. Handlers enqueue and
// return immediately; a single worker drains the queue so the HTTP response
// never waits on brewing. One worker only - the downstream machine is a
// single physical device with no parallel capacity, so items and orders are
// strictly sequential.
type Pipeline struct {
	sink  status.Sink
	delay time.Duration
	queue chan models.Order

	// brewItem drives the actuator for one drink. Replaceable in tests.
	brewItem func(ctx context.Context, item models.OrderItem) error
}

// New creates a Pipeline publishing through sink, with the given fixed
// per-item delay and queue capacity.
func New(sink status.Sink, delay time.Duration, queueSize int) *Pipeline {
	p := &Pipeline{
		sink:  sink,
		delay: delay,
		queue: make(chan models.Order, queueSize),
	}
	p.brewItem = p.triggerMachine
	return p
}

// Enqueue hands an order to the worker without blocking. It returns false
// when the queue is full.
func (p *Pipeline) Enqueue(order models.Order) bool {
	select {
	case p.queue <- order:
		metrics.BrewQueueDepth.Set(float64(len(p.queue)))
		return true
	default:
		logger.Error("brew queue full, order dropped", map[string]interface{}{
			"order_id": order.OrderID,
			"capacity": cap(p.queue),
		})
		return false
	}
}

// Start launches the worker goroutine. It drains the queue until ctx is
// cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case order := <-p.queue:
				metrics.BrewQueueDepth.Set(float64(len(p.queue)))
				start := time.Now()
				p.process(ctx, order)
				metrics.BrewDurationSeconds.Observe(time.Since(start).Seconds())
			}
		}
	}()
}

// process runs the state machine for one order:
// received -> preparing -> brewing (once per item) -> ready, with a terminal
// error state if any item fails. Items are never skipped, reordered, or
// brewed concurrently. Already-brewed items are not rolled back on failure.
func (p *Pipeline) process(ctx context.Context, order models.Order) {
	p.sink.Publish(order.UserID, order.OrderID, models.StatusPreparing, "Order received, preparing drinks")

	total := len(order.Items)
	logger.Info("triggering coffee machine", map[string]interface{}{
		"order_id":    order.OrderID,
		"drink_count": total,
	})

	for i, item := range order.Items {
		p.sink.Publish(order.UserID, order.OrderID, models.StatusBrewing,
			fmt.Sprintf("Making drink %d of %d", i+1, total))

		if err := p.brewItem(ctx, item); err != nil {
			logger.Error("brew failed", map[string]interface{}{
				"error":    err.Error(),
				"order_id": order.OrderID,
				"drink":    i + 1,
			})
			p.sink.Publish(order.UserID, order.OrderID, models.StatusError, err.Error())
			metrics.BrewOrdersTotal.WithLabelValues("error").Inc()
			return
		}
	}

	p.sink.Publish(order.UserID, order.OrderID, models.StatusReady, "All drinks ready for pickup")
	metrics.BrewOrdersTotal.WithLabelValues("ready").Inc()
	logger.Info("coffee machine run completed", map[string]interface{}{
		"order_id": order.OrderID,
	})
}

// triggerMachine stands in for the physical actuation. The real device would
// be driven over GPIO here; the simulation logs the drink and holds the
// worker for the fixed per-item duration.
func (p *Pipeline) triggerMachine(ctx context.Context, item models.OrderItem) error {
	logger.Info("making drink", map[string]interface{}{
		"name": item.Name,
	})

	if p.delay <= 0 {
		return nil
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
