package outbox_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rt-lending/internal/core/events"
	"github.com/frahmantamala/rt-lending/internal/outbox"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

func TestOutbox(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Outbox Suite")
}

type fakeDeliverer struct {
	mu       sync.Mutex
	received []*events.ChangeEvent
	err      error
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeDeliverer) Name() string { return "fake" }

func (f *fakeDeliverer) Deliver(ctx context.Context, event *events.ChangeEvent) error {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, event)
	return f.err
}

func (f *fakeDeliverer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

// slowCreates delays creates so a later change to the same entity would
// overtake them on a free worker.
type slowCreates struct {
	mu    sync.Mutex
	order []string
}

func (s *slowCreates) Name() string { return "slow-creates" }

func (s *slowCreates) Deliver(_ context.Context, event *events.ChangeEvent) error {
	if event.Action == events.ActionCreateLoan {
		time.Sleep(50 * time.Millisecond)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, event.EntityID+":"+event.Action)
	return nil
}

func (s *slowCreates) deliveredFor(entityID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, o := range s.order {
		if action, ok := strings.CutPrefix(o, entityID+":"); ok {
			out = append(out, action)
		}
	}
	return out
}

var _ = Describe("Dispatcher", func() {
	var (
		sink *fakeDeliverer
		d    *outbox.Dispatcher
	)

	AfterEach(func() {
		if d != nil {
			d.Shutdown()
		}
	})

	It("delivers every queued change once", func() {
		sink = &fakeDeliverer{}
		d = outbox.NewDispatcher(outbox.Config{MaxWorkers: 3, QueueSize: 10}, sink, logger.Discard())

		for i := 0; i < 5; i++ {
			Expect(d.Enqueue(events.NewChangeEvent(events.ActionCreateLoan, "loan", nil))).To(BeTrue())
		}

		Eventually(sink.count).Should(Equal(5))
		Consistently(sink.count, 50*time.Millisecond).Should(Equal(5))
		Expect(d.Stats().Delivered).To(Equal(int64(5)))
		Expect(d.Stats().Dropped).To(BeZero())
	})

	It("keeps changes to one entity in order across workers", func() {
		sink := &slowCreates{}
		d = outbox.NewDispatcher(outbox.Config{MaxWorkers: 4, QueueSize: 20}, sink, logger.Discard())

		for _, id := range []string{"x", "y", "z"} {
			Expect(d.Enqueue(events.NewChangeEvent(events.ActionCreateLoan, id, nil))).To(BeTrue())
			Expect(d.Enqueue(events.NewChangeEvent(events.ActionUpdateLoan, id, nil))).To(BeTrue())
			Expect(d.Enqueue(events.NewChangeEvent(events.ActionDeleteLoan, id, nil))).To(BeTrue())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		Expect(d.Drain(ctx)).To(Succeed())

		for _, id := range []string{"x", "y", "z"} {
			Expect(sink.deliveredFor(id)).To(Equal([]string{
				events.ActionCreateLoan, events.ActionUpdateLoan, events.ActionDeleteLoan,
			}), "entity %s", id)
		}
	})

	It("drops instead of blocking when the queue is full", func() {
		sink = &fakeDeliverer{block: make(chan struct{}), started: make(chan struct{}, 1)}
		d = outbox.NewDispatcher(outbox.Config{MaxWorkers: 1, QueueSize: 1}, sink, logger.Discard())

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 10; i++ {
				d.Enqueue(events.NewChangeEvent(events.ActionUpdateLoan, "loan", nil))
			}
		}()
		Eventually(done).Should(BeClosed())

		// one in flight, one held by the dispatcher, one in the queue
		Expect(d.Stats().Dropped).To(BeNumerically(">=", 7))
		close(sink.block)
		Eventually(func() int64 { return d.Stats().Delivered }).Should(Equal(d.Stats().Enqueued))
	})

	It("counts failures and never retries them", func() {
		sink = &fakeDeliverer{err: errors.New("sheet api down")}
		d = outbox.NewDispatcher(outbox.Config{MaxWorkers: 1, QueueSize: 5}, sink, logger.Discard())

		d.Enqueue(events.NewChangeEvent(events.ActionDeleteTransaction, "t1", nil))

		Eventually(func() int64 { return d.Stats().Failed }).Should(Equal(int64(1)))
		Consistently(sink.count, 50*time.Millisecond).Should(Equal(1))
	})

	It("cancels in-flight deliveries that exceed the timeout", func() {
		sink = &fakeDeliverer{block: make(chan struct{})}
		d = outbox.NewDispatcher(outbox.Config{MaxWorkers: 1, QueueSize: 5, DeliveryTimeout: 20 * time.Millisecond}, sink, logger.Discard())

		d.Enqueue(events.NewChangeEvent(events.ActionCreateLoan, "loan", nil))
		Eventually(func() int64 { return d.Stats().Failed }).Should(Equal(int64(1)))
	})

	It("subscribes to the event bus", func() {
		sink = &fakeDeliverer{}
		d = outbox.NewDispatcher(outbox.Config{}, sink, logger.Discard())
		bus := events.NewEventBus(logger.Discard())
		bus.Subscribe(events.AllEvents, d.Handle)

		Expect(bus.PublishSync(context.Background(), events.NewChangeEvent(events.ActionCreateTransaction, "t1", nil))).To(Succeed())
		Eventually(sink.count).Should(Equal(1))
	})

	It("refuses new work after shutdown", func() {
		sink = &fakeDeliverer{}
		d = outbox.NewDispatcher(outbox.Config{}, sink, logger.Discard())
		d.Shutdown()

		Expect(d.Enqueue(events.NewChangeEvent(events.ActionCreateLoan, "loan", nil))).To(BeFalse())
		Expect(d.Stats().Dropped).To(Equal(int64(1)))
	})

	It("drains before a one-shot command exits", func() {
		sink = &fakeDeliverer{}
		d = outbox.NewDispatcher(outbox.Config{}, sink, logger.Discard())
		for i := 0; i < 3; i++ {
			d.Enqueue(events.NewChangeEvent(events.ActionCreateLoan, "loan", nil))
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(d.Drain(ctx)).To(Succeed())
		Expect(sink.count()).To(Equal(3))
	})
})
