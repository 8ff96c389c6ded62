// Package outbox delivers change events to external sinks in the background.
//
// Delivery is at most once and best effort: an event is handed to each
// Deliverer exactly one time or not at all. Nothing is retried, persisted or
// reported back to the code that caused the change.
//
// Within one Dispatcher, events for the same entity id are delivered in the
// order they were enqueued. Every event for an entity goes to the same
// worker. Events for different entities may be delivered concurrently.
package outbox

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/rt-lending/internal/core/events"
)

// Deliverer pushes one change to an external system. Implementations may
// fail; the dispatcher logs the error and moves on. ctx carries the
// per-delivery timeout and is cancelled on shutdown.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, event *events.ChangeEvent) error
}

type job struct {
	event *events.ChangeEvent
}

// worker owns one shard of entity ids and processes its jobs one at a time.
type worker struct {
	id         int
	jobChannel chan job
	logger     *slog.Logger
}

func newWorker(id int, logger *slog.Logger) *worker {
	return &worker{
		id:         id,
		jobChannel: make(chan job),
		logger:     logger,
	}
}

func (w *worker) start(ctx context.Context, wg *sync.WaitGroup, process func(job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case j := <-w.jobChannel:
				process(j)
			case <-ctx.Done():
				w.logger.Debug("outbox worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

type Config struct {
	Name            string
	MaxWorkers      int
	QueueSize       int
	DeliveryTimeout time.Duration
}

// Stats counts what happened to enqueued events.
type Stats struct {
	Enqueued  int64 `json:"enqueued"`
	Dropped   int64 `json:"dropped"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// Dispatcher owns a bounded queue and a pool of workers for one Deliverer.
type Dispatcher struct {
	name      string
	deliverer Deliverer
	timeout   time.Duration
	logger    *slog.Logger

	jobQueue   chan job
	workers    []*worker
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once

	enqueued  atomic.Int64
	dropped   atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

func NewDispatcher(cfg Config, deliverer Deliverer, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	name := cfg.Name
	if name == "" {
		name = deliverer.Name()
	}

	d := &Dispatcher{
		name:       name,
		deliverer:  deliverer,
		timeout:    timeout,
		logger:     logger.With("sink", name),
		jobQueue:   make(chan job, queueSize),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.startOnce.Do(func() {
		d.workers = make([]*worker, d.maxWorkers)
		for i := range d.workers {
			d.workers[i] = newWorker(i, d.logger)
			d.workers[i].start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("outbox dispatcher started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case j := <-d.jobQueue:
			w := d.workerFor(j.event.EntityID)
			select {
			case w.jobChannel <- j:
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			return
		}
	}
}

// workerFor picks the worker that owns entityID.
func (d *Dispatcher) workerFor(entityID string) *worker {
	if len(d.workers) == 1 {
		return d.workers[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(entityID))
	return d.workers[h.Sum32()%uint32(len(d.workers))]
}

// Enqueue never blocks. When the queue is full or the dispatcher is shut
// down, the event is dropped and false is returned.
func (d *Dispatcher) Enqueue(event *events.ChangeEvent) bool {
	if d.ctx.Err() != nil {
		d.dropped.Add(1)
		d.logger.Warn("outbox closed, dropping change", "action", event.Action, "entity_id", event.EntityID)
		return false
	}

	select {
	case d.jobQueue <- job{event: event}:
		d.enqueued.Add(1)
		d.logger.Debug("change queued",
			"action", event.Action,
			"entity_id", event.EntityID,
			"queue_length", len(d.jobQueue))
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("outbox queue full, dropping change",
			"action", event.Action,
			"entity_id", event.EntityID,
			"queue_capacity", cap(d.jobQueue))
		return false
	}
}

// Handle adapts the dispatcher to an event bus subscription.
func (d *Dispatcher) Handle(_ context.Context, event events.Event) error {
	ce, ok := event.(*events.ChangeEvent)
	if !ok {
		return nil
	}
	d.Enqueue(ce)
	return nil
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	start := time.Now()
	if err := d.deliverer.Deliver(ctx, j.event); err != nil {
		d.failed.Add(1)
		d.logger.Warn("change delivery failed",
			"action", j.event.Action,
			"entity_id", j.event.EntityID,
			"event_id", j.event.EventID(),
			"error", err)
		return
	}

	d.delivered.Add(1)
	d.logger.Debug("change delivered",
		"action", j.event.Action,
		"entity_id", j.event.EntityID,
		"duration", time.Since(start))
}

func (d *Dispatcher) Name() string {
	return d.name
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Enqueued:  d.enqueued.Load(),
		Dropped:   d.dropped.Load(),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
	}
}

// Shutdown stops the workers. Events still queued are dropped; a delivery in
// flight sees its context cancelled.
func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		d.logger.Info("shutting down outbox dispatcher", "pending", len(d.jobQueue))
		d.cancel()
		d.wg.Wait()
		d.logger.Info("outbox dispatcher shutdown complete")
	})
}

// Drain waits until the queue is empty and no delivery is running, or until
// ctx is done. Used by one-shot commands before Shutdown.
func (d *Dispatcher) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		s := d.Stats()
		if len(d.jobQueue) == 0 && s.Delivered+s.Failed >= s.Enqueued {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
