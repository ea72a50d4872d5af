package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kathulis/tabkeeper/internal/api/metrics"
	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	insertTimeout  = 5 * time.Second
)

// Dispatcher routes customer audit events to a fixed set of workers using
// consistent hashing on the customer id, so events for one customer are
// written in the order they happened.
type Dispatcher struct {
	workers  []chan domain.CustomerEvent
	recorder ports.AuditRecorder
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, recorder ports.AuditRecorder, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.CustomerEvent, numWorkers),
		recorder: recorder,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.CustomerEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their queue and stop
// once ctx is cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Publish queues an event for the worker responsible for its customer. When
// that worker's queue is full the event is dropped and logged rather than
// blocking the request.
func (d *Dispatcher) Publish(event domain.CustomerEvent) {
	idx := d.shardIndex(event.CustomerID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		d.log.Error().
			Str("customer_id", event.CustomerID).
			Str("action", string(event.Action)).
			Int("worker_id", idx).
			Msg("audit queue full, event dropped")
	}
}

// shardIndex maps a customer id deterministically to a worker index.
func (d *Dispatcher) shardIndex(customerID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(customerID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.CustomerEvent) {
	defer d.wg.Done()
	depth := metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case event := <-ch:
			depth.Set(float64(len(ch)))
			d.record(context.WithoutCancel(ctx), id, event)
		}
	}
}

// drain writes whatever is still queued after shutdown began.
func (d *Dispatcher) drain(id int, ch <-chan domain.CustomerEvent) {
	for {
		select {
		case event := <-ch:
			d.record(context.Background(), id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, id int, event domain.CustomerEvent) {
	ctx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()

	if err := d.recorder.InsertEvent(ctx, &event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("customer_id", event.CustomerID).
			Int("worker_id", id).
			Msg("audit event persistence failed")
		return
	}
	metrics.AuditEventsTotal.WithLabelValues("recorded").Inc()
}
